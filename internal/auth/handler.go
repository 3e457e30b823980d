package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/depot-erp/depot/internal/access"
	"github.com/depot-erp/depot/internal/platform/httpx"
	"github.com/depot-erp/depot/internal/shared"
)

// SetForgetter drops cached permission sets of a session.
type SetForgetter interface {
	Forget(ctx context.Context, sessionID string)
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	guard          access.Guard
	sets           SetForgetter
	audit          AuditRecorder
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, guard access.Guard, sets SetForgetter, audit AuditRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		guard:          guard,
		sets:           sets,
		audit:          audit,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/csrf", h.csrfToken)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Post("/emulate/stop", h.stopEmulation)
	r.With(h.guard.Require(access.AreaEmployees, access.EmulateUser)).Post("/emulate/{userID}", h.startEmulation)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	UserID     int64  `json:"user_id"`
	RoleID     int64  `json:"role_id"`
	EmulatedBy *int64 `json:"emulated_by,omitempty"`
	CSRFToken  string `json:"csrf_token"`
}

func (h *Handler) csrfToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrfManager.EnsureToken(shared.SessionFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid email or password")
		return
	}

	h.sets.Forget(r.Context(), sess.ID)
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Error("renew session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	sess.SetActor(user.ID, user.RoleID)
	token, err := h.csrfManager.Rotate(sess)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	h.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusOK, sessionResponse{UserID: user.ID, RoleID: user.RoleID, CSRFToken: token})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		h.sets.Forget(r.Context(), sess.ID)
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) startEmulation(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	targetID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || targetID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	realID := shared.RealUserID(r.Context())
	target, err := h.service.EmulationTarget(r.Context(), realID, targetID)
	switch {
	case errors.Is(err, ErrSelfEmulation):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "user not found")
		return
	case err != nil:
		h.logger.Error("lookup emulation target", slog.Int64("target_id", targetID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	sess.StartEmulation(shared.SessionActor{UserID: target.ID, RoleID: target.RoleID})
	h.sets.Forget(r.Context(), sess.ID)
	if h.audit != nil {
		entry := shared.AuditLog{
			ActorID:  realID,
			Action:   "emulation.start",
			Entity:   "user",
			EntityID: strconv.FormatInt(target.ID, 10),
		}
		if err := h.audit.Record(r.Context(), entry); err != nil {
			h.logger.Warn("audit emulation", slog.Any("error", err))
		}
	}
	h.logger.Info("emulation started", slog.Int64("user_id", realID), slog.Int64("target_id", target.ID))
	h.respondSession(w, sess)
}

func (h *Handler) stopEmulation(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, ok := sess.Actor(); !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if !sess.StopEmulation() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", ErrNotEmulating.Error())
		return
	}
	h.sets.Forget(r.Context(), sess.ID)
	h.respondSession(w, sess)
}

func (h *Handler) respondSession(w http.ResponseWriter, sess *shared.Session) {
	actor, _ := sess.Actor()
	resp := sessionResponse{UserID: actor.UserID, RoleID: actor.RoleID, CSRFToken: sess.Get(shared.CSRFSessionKey)}
	if original, ok := sess.Emulator(); ok {
		resp.EmulatedBy = &original.UserID
	}
	httpx.JSON(w, http.StatusOK, resp)
}

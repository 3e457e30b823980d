package access

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/depot-erp/depot/internal/platform/httpx"
	"github.com/depot-erp/depot/internal/shared"
)

// Handler exposes the combined set of the current actor and the grant editors.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Guard
	nav       []NavItem
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, nav: DefaultNav(), validator: validator.New()}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me", h.me)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireArea(AreaSettings))
		r.Get("/catalog", h.catalog)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(AreaSettings, RolePermissions))
		r.Get("/roles/{id}", h.showEditor(ScopeRole))
		r.Put("/roles/{id}", h.saveGrants(ScopeRole))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(AreaEmployees, UserPermissions))
		r.Get("/users/{id}", h.showEditor(ScopeUser))
		r.Put("/users/{id}", h.saveGrants(ScopeUser))
	})
}

type meResponse struct {
	Actor       Actor       `json:"actor"`
	EmulatedBy  *Actor      `json:"emulated_by,omitempty"`
	Permissions CombinedSet `json:"permissions"`
	Nav         []NavItem   `json:"nav"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	sa, ok := sess.Actor()
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	actor := Actor{UserID: sa.UserID, RoleID: sa.RoleID}
	set, err := h.service.Resolve(r.Context(), sess.ID, actor)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Int64("user_id", actor.UserID), slog.Any("error", err))
		set = CombinedSet{}
	}
	resp := meResponse{Actor: actor, Permissions: set, Nav: VisibleNav(set, h.nav)}
	if original, ok := sess.Emulator(); ok {
		resp.EmulatedBy = &Actor{UserID: original.UserID, RoleID: original.RoleID}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		h.logger.Error("load catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": catalog.Permissions()})
}

func (h *Handler) showEditor(scope Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || ownerID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+string(scope)+" id")
			return
		}
		areas, err := h.service.Editor(r.Context(), scope, ownerID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"scope": scope, "owner_id": ownerID, "areas": areas})
	}
}

type saveGrantsRequest struct {
	Grants []GrantInput `json:"grants" validate:"dive"`
}

func (h *Handler) saveGrants(scope Scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || ownerID <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+string(scope)+" id")
			return
		}
		var req saveGrantsRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.service.SaveGrants(r.Context(), shared.RealUserID(r.Context()), scope, ownerID, req.Grants); err != nil {
			h.respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var loadErr *LoadError
	switch {
	case errors.Is(err, ErrSelfGrant):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "you cannot edit your own permissions")
	case errors.Is(err, ErrInvalidGrant):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Grant", err.Error())
	case errors.As(err, &loadErr):
		h.logger.Error("load grants", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Permissions Unavailable", "")
	default:
		h.logger.Error("grant editor", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

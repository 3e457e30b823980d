package taskboard

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/depot-erp/depot/internal/access"
	"github.com/depot-erp/depot/internal/platform/httpx"
)

// Handler serves the task board.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers task board routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(access.AreaTasks, access.TaskBoard)).Get("/board/{groupID}", h.board)
	r.With(h.guard.Require(access.AreaTasks, access.EditTask)).Post("/board/{groupID}/move", h.move)
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupParam(w, r)
	if !ok {
		return
	}
	board, err := h.service.Board(r.Context(), groupID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, board)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	groupID, ok := groupParam(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	board, err := h.service.MoveTask(r.Context(), groupID, req)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, board)
}

func groupParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid group id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "task group not found")
	case errors.Is(err, ErrInvalidCell):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Move", err.Error())
	case errors.Is(err, ErrStaleBoard):
		httpx.Problem(w, http.StatusConflict, "Board Changed", "reload the board and retry")
	default:
		h.logger.Error("task board", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/depot-erp/depot/internal/access"
	audithttp "github.com/depot-erp/depot/internal/audit/http"
	"github.com/depot-erp/depot/internal/auth"
	"github.com/depot-erp/depot/internal/customers"
	"github.com/depot-erp/depot/internal/observability"
	"github.com/depot-erp/depot/internal/platform/httpx"
	"github.com/depot-erp/depot/internal/roles"
	"github.com/depot-erp/depot/internal/shared"
	"github.com/depot-erp/depot/internal/taskboard"
	"github.com/depot-erp/depot/internal/users"
	"github.com/depot-erp/depot/internal/warehouses"
	"github.com/depot-erp/depot/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	CSRFManager       *shared.CSRFManager
	Guard             access.Guard
	AuthHandler       *auth.Handler
	AccessHandler     *access.Handler
	AuditHandler      *audithttp.Handler
	CustomersHandler  *customers.Handler
	WarehousesHandler *warehouses.Handler
	UsersHandler      *users.Handler
	RolesHandler      *roles.Handler
	TaskBoardHandler  *taskboard.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewMetricsRouter serves the scrape endpoint. It is mounted on its own listener so
// /metrics is never reachable through the public address.
func NewMetricsRouter(metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// NewRouter constructs the chi.Router with depot defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)

		r.Get(access.ForbiddenPath, func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "you do not have access to that page")
		})

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.AccessHandler != nil {
			r.Route("/access", params.AccessHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.CustomersHandler != nil {
			r.Route("/customers", params.CustomersHandler.MountRoutes)
		}
		if params.WarehousesHandler != nil {
			r.Route("/warehouses", params.WarehousesHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/employees", params.UsersHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.TaskBoardHandler != nil {
			r.Route("/tasks", params.TaskBoardHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.Guard.RequireArea(access.AreaSettings))
				params.JobHandler.MountRoutes(r)
			})
		}
	})

	return r
}

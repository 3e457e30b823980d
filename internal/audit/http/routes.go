package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/depot-erp/depot/internal/access"
	"github.com/depot-erp/depot/internal/platform/httpx"
	"github.com/depot-erp/depot/internal/shared"
)

const (
	exportLimit  = 10
	exportWindow = time.Minute
)

// MountRoutes registers the audit timeline and its CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(exportLimit, exportWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit reached")
		}),
	)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(access.AreaSettings, access.ViewAudit))
		r.Get("/", h.handleTimeline)
		r.With(limiter).Get("/export.csv", h.handleExport)
	})
}

// rateLimitKey buckets exports per real user, falling back to the client IP.
func rateLimitKey(r *http.Request) (string, error) {
	if id := shared.RealUserID(r.Context()); id > 0 {
		return "user:" + strconv.FormatInt(id, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

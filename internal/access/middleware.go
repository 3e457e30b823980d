package access

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/depot-erp/depot/internal/platform/httpx"
	"github.com/depot-erp/depot/internal/shared"
)

// ForbiddenPath is where denied page requests are redirected.
const ForbiddenPath = "/403"

// Decision outcomes reported to a DecisionRecorder.
const (
	OutcomeAllow = "allow"
	OutcomeDeny  = "deny"
	OutcomeError = "error"
)

// DecisionRecorder observes guard decisions.
type DecisionRecorder interface {
	RecordAccessDecision(area, outcome string)
}

// Resolver produces the combined set of a session actor.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string, actor Actor) (CombinedSet, error)
}

// Guard gates HTTP handlers on the acting user's combined permission set. Every failure
// path denies.
type Guard struct {
	Resolver Resolver
	Logger   *slog.Logger
	Recorder DecisionRecorder
}

// Require allows the request only when subArea is granted within area.
func (g Guard) Require(area, subArea string) func(http.Handler) http.Handler {
	return g.gate(area, func(set CombinedSet) bool {
		return HasAccess(set, area, subArea)
	})
}

// RequireArea allows the request when the area is reachable at all.
func (g Guard) RequireArea(area string) func(http.Handler) http.Handler {
	return g.gate(area, func(set CombinedSet) bool {
		return HasAreaAccess(set, area)
	})
}

func (g Guard) gate(area string, allowed func(CombinedSet) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			set, ok := g.setFor(r)
			if !ok {
				g.record(area, OutcomeError)
				deny(w, r)
				return
			}
			if !allowed(set) {
				g.record(area, OutcomeDeny)
				deny(w, r)
				return
			}
			g.record(area, OutcomeAllow)
			next.ServeHTTP(w, r.WithContext(ContextWithSet(r.Context(), set)))
		})
	}
}

// setFor returns the set already resolved for this request or resolves it.
func (g Guard) setFor(r *http.Request) (CombinedSet, bool) {
	if set, ok := SetFromContext(r.Context()); ok {
		return set, true
	}
	sess := shared.SessionFromContext(r.Context())
	sa, ok := sess.Actor()
	if !ok || g.Resolver == nil {
		return CombinedSet{}, false
	}
	set, err := g.Resolver.Resolve(r.Context(), sess.ID, Actor{UserID: sa.UserID, RoleID: sa.RoleID})
	if err != nil {
		g.logger().Error("resolve permissions",
			slog.Int64("user_id", sa.UserID),
			slog.Int64("role_id", sa.RoleID),
			slog.Any("error", err))
		return CombinedSet{}, false
	}
	return set, true
}

func (g Guard) record(area, outcome string) {
	if g.Recorder != nil {
		g.Recorder.RecordAccessDecision(area, outcome)
	}
}

func (g Guard) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// deny redirects page loads to the access-denied route and refuses actions outright.
func deny(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		http.Redirect(w, r, ForbiddenPath, http.StatusSeeOther)
		return
	}
	httpx.Problem(w, http.StatusForbidden, "Forbidden", "access denied")
}

type setContextKey struct{}

// ContextWithSet stores the resolved set for downstream handlers.
func ContextWithSet(ctx context.Context, set CombinedSet) context.Context {
	return context.WithValue(ctx, setContextKey{}, set)
}

// SetFromContext returns the set resolved by a Guard earlier in the chain.
func SetFromContext(ctx context.Context) (CombinedSet, bool) {
	set, ok := ctx.Value(setContextKey{}).(CombinedSet)
	return set, ok
}

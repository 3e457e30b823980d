package access

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/depot-erp/depot/internal/shared"
)

// Repository is the persistence port the access core reads grants through.
type Repository interface {
	ActiveCatalog(ctx context.Context) ([]Permission, error)
	// ActiveRole returns the current role of an active user, or ErrNotFound when the user
	// is missing or deactivated.
	ActiveRole(ctx context.Context, userID int64) (int64, error)
	RoleGrants(ctx context.Context, roleID int64) ([]GrantRow, error)
	UserGrants(ctx context.Context, userID int64) ([]GrantRow, error)
	ReplaceGrants(ctx context.Context, scope Scope, ownerID int64, rows []GrantRow) error
}

// SetStore caches combined sets per session and actor. A slot names one versioned entry.
type SetStore interface {
	Slot(ctx context.Context, sessionID string, actor Actor) (string, error)
	Load(ctx context.Context, slot string) (CombinedSet, bool, error)
	Store(ctx context.Context, sessionID, slot string, set CombinedSet) error
	Forget(ctx context.Context, sessionID string) error
}

// Invalidator is told when the grants of a role or user change.
type Invalidator interface {
	InvalidateGrants(ctx context.Context, scope Scope, ownerID int64) error
}

// AuditRecorder persists grant edits.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Hooks groups optional collaborators of Service.
type Hooks struct {
	Cache       SetStore
	Invalidator Invalidator
	Audit       AuditRecorder
	// LoadTimeout bounds one shared grant load; zero means defaultLoadTimeout.
	LoadTimeout time.Duration
}

const defaultLoadTimeout = 5 * time.Second

// Service loads and edits grants.
type Service struct {
	repo   Repository
	hooks  Hooks
	logger *slog.Logger
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(repo Repository, hooks Hooks, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, hooks: hooks, logger: logger}
}

// Catalog loads the active permission catalog.
func (s *Service) Catalog(ctx context.Context) (*Catalog, error) {
	perms, err := s.repo.ActiveCatalog(ctx)
	if err != nil {
		return nil, &LoadError{Op: "catalog", Err: err}
	}
	return NewCatalog(perms), nil
}

// LoadCombined merges the role grants and user overrides of actor into one set.
// Actors without rows get an empty set, and so do inactive users and actors whose role
// no longer matches the user's current role. Concurrent loads for the same actor share one
// round of queries.
func (s *Service) LoadCombined(ctx context.Context, actor Actor) (CombinedSet, error) {
	key := strconv.FormatInt(actor.UserID, 10) + ":" + strconv.FormatInt(actor.RoleID, 10)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		// Shared by every waiter, so it must not inherit the first caller's cancellation.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout())
		defer cancel()
		return s.loadCombined(loadCtx, actor)
	})
	select {
	case <-ctx.Done():
		return CombinedSet{}, &LoadError{Op: "combined", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return CombinedSet{}, res.Err
		}
		return res.Val.(CombinedSet), nil
	}
}

func (s *Service) loadTimeout() time.Duration {
	if s.hooks.LoadTimeout > 0 {
		return s.hooks.LoadTimeout
	}
	return defaultLoadTimeout
}

func (s *Service) loadCombined(ctx context.Context, actor Actor) (CombinedSet, error) {
	if actor.UserID <= 0 {
		return CombinedSet{}, nil
	}
	roleID, err := s.repo.ActiveRole(ctx, actor.UserID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Info("grants withheld from inactive user", slog.Int64("user_id", actor.UserID))
		return CombinedSet{}, nil
	case err != nil:
		return CombinedSet{}, &LoadError{Op: "actor", Err: err}
	case roleID != actor.RoleID:
		s.logger.Info("grants withheld from stale role",
			slog.Int64("user_id", actor.UserID),
			slog.Int64("session_role_id", actor.RoleID),
			slog.Int64("role_id", roleID))
		return CombinedSet{}, nil
	}

	catalog, err := s.Catalog(ctx)
	if err != nil {
		return CombinedSet{}, err
	}

	var roleRows, userRows []GrantRow
	if actor.RoleID > 0 {
		if roleRows, err = s.repo.RoleGrants(ctx, actor.RoleID); err != nil {
			return CombinedSet{}, &LoadError{Op: "role grants", Err: err}
		}
	}
	if userRows, err = s.repo.UserGrants(ctx, actor.UserID); err != nil {
		return CombinedSet{}, &LoadError{Op: "user grants", Err: err}
	}

	b := newSetBuilder()
	s.merge(b, catalog, ScopeRole, actor.RoleID, roleRows)
	s.merge(b, catalog, ScopeUser, actor.UserID, userRows)
	return b.build(), nil
}

func (s *Service) merge(b *setBuilder, catalog *Catalog, scope Scope, ownerID int64, rows []GrantRow) {
	for _, row := range rows {
		perm, ok := catalog.ByID(row.PermissionID)
		if !ok {
			continue
		}
		b.enable(perm.Area)
		tokens, malformed := DecodeAccess(row.Access)
		for _, bad := range malformed {
			s.logger.Warn("drop malformed grant token",
				slog.String("scope", string(scope)),
				slog.Int64("owner_id", ownerID),
				slog.String("area", perm.Area),
				slog.String("token", bad))
		}
		for _, token := range tokens {
			if !catalog.Offers(perm.ID, token) {
				s.logger.Warn("drop grant token missing from catalog",
					slog.String("scope", string(scope)),
					slog.Int64("owner_id", ownerID),
					slog.String("area", perm.Area),
					slog.String("token", token))
				continue
			}
			b.grant(perm.Area, token)
		}
	}
}

// Resolve returns the combined set for actor within a session, serving it from the cache
// when one is configured. Cache failures fall back to a fresh load.
func (s *Service) Resolve(ctx context.Context, sessionID string, actor Actor) (CombinedSet, error) {
	cache := s.hooks.Cache
	if cache == nil || sessionID == "" {
		return s.LoadCombined(ctx, actor)
	}
	slot, err := cache.Slot(ctx, sessionID, actor)
	if err != nil {
		s.logger.Warn("permission cache get", slog.Any("error", err))
		return s.LoadCombined(ctx, actor)
	}
	set, ok, err := cache.Load(ctx, slot)
	if err != nil {
		s.logger.Warn("permission cache get", slog.Any("error", err))
	} else if ok {
		return set, nil
	}
	set, err = s.LoadCombined(ctx, actor)
	if err != nil {
		return CombinedSet{}, err
	}
	if err := cache.Store(ctx, sessionID, slot, set); err != nil {
		s.logger.Warn("permission cache put", slog.Any("error", err))
	}
	return set, nil
}

// Forget drops every cached set of the session. Used on login, logout and emulation changes.
func (s *Service) Forget(ctx context.Context, sessionID string) {
	if s.hooks.Cache == nil || sessionID == "" {
		return
	}
	if err := s.hooks.Cache.Forget(ctx, sessionID); err != nil {
		s.logger.Warn("permission cache forget", slog.Any("error", err))
	}
}

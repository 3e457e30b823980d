package access

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depot-erp/depot/internal/shared"
)

type stubRepo struct {
	mu         sync.Mutex
	catalog    []Permission
	catalogErr error
	roleRows   map[int64][]GrantRow
	userRows   map[int64][]GrantRow
	roleErr    error
	loads      int
	replaced   []GrantRow
	replaceErr error
	actors     map[int64]stubActor
	actorErr   error
	// onRoleGrants runs before role rows are read.
	onRoleGrants func()
	// inflight, when set, is served once by RoleGrants in place of roleRows.
	inflight []GrantRow
}

type stubActor struct {
	roleID int64
	active bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		catalog:  testCatalogPermissions(),
		roleRows: map[int64][]GrantRow{},
		userRows: map[int64][]GrantRow{},
		actors:   map[int64]stubActor{10: {roleID: 2, active: true}},
	}
}

func (s *stubRepo) ActiveRole(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actorErr != nil {
		return 0, s.actorErr
	}
	a, ok := s.actors[userID]
	if !ok || !a.active {
		return 0, ErrNotFound
	}
	return a.roleID, nil
}

func (s *stubRepo) ActiveCatalog(context.Context) ([]Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.catalog, s.catalogErr
}

func (s *stubRepo) RoleGrants(_ context.Context, roleID int64) ([]GrantRow, error) {
	if s.onRoleGrants != nil {
		s.onRoleGrants()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rows := s.inflight; rows != nil {
		s.inflight = nil
		return rows, s.roleErr
	}
	return s.roleRows[roleID], s.roleErr
}

func (s *stubRepo) UserGrants(_ context.Context, userID int64) ([]GrantRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userRows[userID], nil
}

func (s *stubRepo) ReplaceGrants(_ context.Context, _ Scope, _ int64, rows []GrantRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced = rows
	return nil
}

func (s *stubRepo) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type invalidation struct {
	scope   Scope
	ownerID int64
}

type stubInvalidator struct {
	calls []invalidation
}

func (s *stubInvalidator) InvalidateGrants(_ context.Context, scope Scope, ownerID int64) error {
	s.calls = append(s.calls, invalidation{scope: scope, ownerID: ownerID})
	return nil
}

type stubAudit struct {
	logs []shared.AuditLog
}

func (s *stubAudit) Record(_ context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

func TestLoadCombinedWithoutRowsIsEmpty(t *testing.T) {
	svc := NewService(newStubRepo(), Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	require.NoError(t, err)
	assert.True(t, set.Empty())
}

func TestLoadCombinedMergesRoleAndUserGrants(t *testing.T) {
	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board"}}
	repo.userRows[10] = []GrantRow{
		{PermissionID: 1, Access: "edit_task"},
		{PermissionID: 2, Access: "view_customers"},
		{PermissionID: 3, Access: ""},
	}
	svc := NewService(repo, Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"tasks":     {"edit_task", "task_board"},
		"customers": {"view_customers"},
		"items":     {},
	}, set.Map())
	assert.True(t, HasAreaAccess(set, "items"))
	assert.False(t, HasAccess(set, "customers", "add_customer"))
}

func TestLoadCombinedDropsUnknownAndMalformedTokens(t *testing.T) {
	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{
		{PermissionID: 1, Access: "task_board,bad!,delete_task"},
		{PermissionID: 99, Access: "anything"},
	}
	svc := NewService(repo, Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks"}, set.Areas())
	assert.Equal(t, []string{"task_board"}, set.SubAreas("tasks"))
}

func TestLoadCombinedFailureIsLoadError(t *testing.T) {
	repo := newStubRepo()
	repo.roleErr = errors.New("connection reset")
	svc := NewService(repo, Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "role grants", loadErr.Op)
	assert.True(t, set.Empty())

	repo = newStubRepo()
	repo.catalogErr = errors.New("timeout")
	svc = NewService(repo, Hooks{}, nil)
	_, err = svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "catalog", loadErr.Op)
}

func TestLoadCombinedHonoursCallerCancellation(t *testing.T) {
	svc := NewService(newStubRepo(), Hooks{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The load may still win the race against cancellation.
	set, err := svc.LoadCombined(ctx, Actor{UserID: 10, RoleID: 2})
	if err != nil {
		var loadErr *LoadError
		assert.True(t, errors.As(err, &loadErr))
		assert.True(t, set.Empty())
	}
}

func TestResolveServesFromCacheUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSetCache(client, time.Minute)

	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board"}}
	svc := NewService(repo, Hooks{Cache: cache}, nil)
	ctx := context.Background()
	actor := Actor{UserID: 10, RoleID: 2}

	set, err := svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	assert.True(t, HasAccess(set, "tasks", "task_board"))
	assert.Equal(t, 1, repo.loadCount())

	_, err = svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.loadCount())

	repo.mu.Lock()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board,edit_task"}}
	repo.mu.Unlock()
	require.NoError(t, cache.InvalidateGrants(ctx, ScopeRole, 2))

	set, err = svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loadCount())
	assert.True(t, HasAccess(set, "tasks", "edit_task"))
}

func TestResolveFallsBackWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board"}}
	svc := NewService(repo, Hooks{Cache: NewSetCache(client, time.Minute)}, nil)
	mr.Close()

	set, err := svc.Resolve(context.Background(), "sess-1", Actor{UserID: 10, RoleID: 2})
	require.NoError(t, err)
	assert.True(t, HasAccess(set, "tasks", "task_board"))
}

func TestForgetDropsSessionEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := newStubRepo()
	svc := NewService(repo, Hooks{Cache: NewSetCache(client, time.Minute)}, nil)
	ctx := context.Background()
	actor := Actor{UserID: 10, RoleID: 2}

	_, err := svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	svc.Forget(ctx, "sess-1")
	_, err = svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loadCount())
}

func TestLoadCombinedWithholdsGrantsFromInactiveUser(t *testing.T) {
	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board,edit_task"}}
	repo.userRows[10] = []GrantRow{{PermissionID: 2, Access: "view_customers"}}
	repo.actors[10] = stubActor{roleID: 2, active: false}
	svc := NewService(repo, Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	require.NoError(t, err)
	assert.True(t, set.Empty())

	set, err = svc.LoadCombined(context.Background(), Actor{UserID: 77, RoleID: 2})
	require.NoError(t, err)
	assert.True(t, set.Empty(), "unknown user")
}

func TestLoadCombinedWithholdsGrantsFromStaleRole(t *testing.T) {
	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board,edit_task"}}
	repo.roleRows[3] = []GrantRow{{PermissionID: 1, Access: "task_board"}}
	repo.actors[10] = stubActor{roleID: 3, active: true}
	svc := NewService(repo, Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	require.NoError(t, err)
	assert.True(t, set.Empty(), "session still carries the old role")

	set, err = svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 3})
	require.NoError(t, err)
	assert.True(t, HasAccess(set, "tasks", "task_board"))
	assert.False(t, HasAccess(set, "tasks", "edit_task"))
}

func TestLoadCombinedActorLookupFailureIsLoadError(t *testing.T) {
	repo := newStubRepo()
	repo.actorErr = errors.New("connection reset")
	svc := NewService(repo, Hooks{}, nil)

	set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "actor", loadErr.Op)
	assert.True(t, set.Empty())
	assert.Zero(t, repo.loadCount())
}

func TestLoadCombinedSourcesAgree(t *testing.T) {
	rows := []GrantRow{
		{PermissionID: 1, Access: "task_board,edit_task"},
		{PermissionID: 2, Access: "view_customers"},
	}
	want := map[string][]string{
		"tasks":     {"edit_task", "task_board"},
		"customers": {"view_customers"},
	}
	tests := []struct {
		name     string
		roleRows []GrantRow
		userRows []GrantRow
	}{
		{name: "role only", roleRows: rows},
		{name: "user only", userRows: rows},
		{name: "both", roleRows: rows, userRows: rows},
		{name: "split", roleRows: rows[:1], userRows: rows[1:]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubRepo()
			repo.roleRows[2] = tc.roleRows
			repo.userRows[10] = tc.userRows
			svc := NewService(repo, Hooks{}, nil)

			set, err := svc.LoadCombined(context.Background(), Actor{UserID: 10, RoleID: 2})
			require.NoError(t, err)
			assert.Equal(t, want, set.Map())
		})
	}
}

func TestResolveDoesNotCacheSetInvalidatedDuringLoad(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewSetCache(client, time.Minute)
	ctx := context.Background()

	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board,edit_task"}}
	revoked := false
	repo.onRoleGrants = func() {
		if revoked {
			return
		}
		revoked = true
		// An editor revokes edit_task while this load is reading: the load
		// returns the old rows, the commit bumps the role version.
		repo.mu.Lock()
		repo.inflight = repo.roleRows[2]
		repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board"}}
		repo.mu.Unlock()
		require.NoError(t, cache.InvalidateGrants(ctx, ScopeRole, 2))
	}
	svc := NewService(repo, Hooks{Cache: cache}, nil)
	actor := Actor{UserID: 10, RoleID: 2}

	set, err := svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	assert.True(t, HasAccess(set, "tasks", "edit_task"), "first load saw the pre-revoke rows")

	set, err = svc.Resolve(ctx, "sess-1", actor)
	require.NoError(t, err)
	assert.False(t, HasAccess(set, "tasks", "edit_task"))
	assert.Equal(t, 2, repo.loadCount())
}

package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depot-erp/depot/internal/shared"
)

func newTestRouter(repo *stubRepo, guardSet CombinedSet) http.Handler {
	svc := NewService(repo, Hooks{}, nil)
	handler := NewHandler(nil, svc, Guard{Resolver: &stubResolver{set: guardSet}})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess := &shared.Session{ID: "sess-1"}
			sess.SetActor(10, 2)
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestHandlerMe(t *testing.T) {
	repo := newStubRepo()
	repo.roleRows[2] = []GrantRow{{PermissionID: 1, Access: "task_board"}}
	router := newTestRouter(repo, CombinedSet{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Actor       Actor               `json:"actor"`
		Permissions map[string][]string `json:"permissions"`
		Nav         []NavItem           `json:"nav"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, Actor{UserID: 10, RoleID: 2}, body.Actor)
	assert.Equal(t, map[string][]string{"tasks": {"task_board"}}, body.Permissions)
	assert.Contains(t, labels(body.Nav), "Tasks/Task Board")
}

func TestHandlerSaveRoleGrants(t *testing.T) {
	repo := newStubRepo()
	allowed := NewCombinedSet(map[string][]string{AreaSettings: {RolePermissions}})
	router := newTestRouter(repo, allowed)

	body := `{"grants":[{"permission_id":1,"sub_areas":["task_board"]}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/roles/4", strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []GrantRow{{PermissionID: 1, Access: "task_board"}}, repo.replaced)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/roles/4", strings.NewReader(`{"grants":[{"permission_id":77}]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/roles/abc", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerEditorRequiresGrant(t *testing.T) {
	repo := newStubRepo()
	router := newTestRouter(repo, NewCombinedSet(map[string][]string{AreaSettings: {ViewRoles}}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles/4", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users/10", strings.NewReader(`{"grants":[]}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, repo.replaced)
}

func TestHandlerSaveOwnUserGrantsIsForbidden(t *testing.T) {
	repo := newStubRepo()
	allowed := NewCombinedSet(map[string][]string{AreaEmployees: {UserPermissions}})
	router := newTestRouter(repo, allowed)
	body := `{"grants":[{"permission_id":2,"sub_areas":["view_customers"]}]}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users/10", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, repo.replaced)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/users/11", strings.NewReader(body)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []GrantRow{{PermissionID: 2, Access: "view_customers"}}, repo.replaced)
}

package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/depot-erp/depot/internal/access"
	"github.com/depot-erp/depot/internal/app"
	"github.com/depot-erp/depot/internal/auth"
	"github.com/depot-erp/depot/internal/shared"
	_ "github.com/depot-erp/depot/testing"
)

type stubRepo struct {
	users    map[int64]*auth.User
	sessions map[string]int64
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &stubRepo{
		users: map[int64]*auth.User{
			1: {ID: 1, Email: "admin@depot.local", RoleID: 1, PasswordHash: string(hash), IsActive: true},
			2: {ID: 2, Email: "picker@depot.local", RoleID: 3, PasswordHash: string(hash), IsActive: true},
			3: {ID: 3, Email: "gone@depot.local", RoleID: 3, PasswordHash: string(hash), IsActive: false},
		},
		sessions: map[string]int64{},
	}
}

func (s *stubRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateSession(_ context.Context, id string, userID int64, _ time.Time, _, _ string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubForgetter struct {
	forgotten []string
}

func (s *stubForgetter) Forget(_ context.Context, sessionID string) {
	s.forgotten = append(s.forgotten, sessionID)
}

type stubAudit struct {
	logs []shared.AuditLog
}

func (s *stubAudit) Record(_ context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

// allowAll grants employee emulation to every actor.
type allowAll struct{}

func (allowAll) Resolve(context.Context, string, access.Actor) (access.CombinedSet, error) {
	return access.NewCombinedSet(map[string][]string{access.AreaEmployees: {access.EmulateUser}}), nil
}

type fixture struct {
	router    http.Handler
	repo      *stubRepo
	forgetter *stubForgetter
	audit     *stubAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	csrf := shared.NewCSRFManager("csrfsecret")

	f := &fixture{repo: newStubRepo(t), forgetter: &stubForgetter{}, audit: &stubAudit{}}
	handler := auth.NewHandler(logger, auth.NewService(f.repo), sessions, csrf, access.Guard{Resolver: allowAll{}, Logger: logger}, f.forgetter, f.audit)

	r := chi.NewRouter()
	r.Use(app.SessionMiddleware(sessions, logger), app.CSRFMiddleware(csrf, logger))
	r.Route("/auth", handler.MountRoutes)
	f.router = r
	return f
}

// client carries the session cookie and csrf token between requests.
type client struct {
	t      *testing.T
	router http.Handler
	cookie *http.Cookie
	token  string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set(shared.CSRFHeader, c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "test_session" {
			c.cookie = cookie
		}
	}
	return rec
}

type sessionBody struct {
	UserID     int64  `json:"user_id"`
	RoleID     int64  `json:"role_id"`
	EmulatedBy *int64 `json:"emulated_by"`
	CSRFToken  string `json:"csrf_token"`
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionBody {
	t.Helper()
	var body sessionBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func (c *client) fetchToken() {
	c.t.Helper()
	rec := c.do(http.MethodGet, "/auth/csrf", "")
	require.Equal(c.t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(c.t, json.NewDecoder(rec.Body).Decode(&body))
	c.token = body["csrf_token"]
	require.NotEmpty(c.t, c.token)
}

func (c *client) login(email string) sessionBody {
	c.t.Helper()
	c.fetchToken()
	rec := c.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"secret123"}`)
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeSession(c.t, rec)
	c.token = body.CSRFToken
	return body
}

func TestLoginRenewsSessionAndToken(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, router: f.router}

	c.fetchToken()
	anonymousID := c.cookie.Value
	anonymousToken := c.token

	rec := c.do(http.MethodPost, "/auth/login", `{"email":"Admin@Depot.local","password":"secret123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeSession(t, rec)

	assert.Equal(t, int64(1), body.UserID)
	assert.Equal(t, int64(1), body.RoleID)
	assert.Nil(t, body.EmulatedBy)
	assert.NotEqual(t, anonymousToken, body.CSRFToken)
	assert.NotEqual(t, anonymousID, c.cookie.Value)
	assert.Equal(t, []string{anonymousID}, f.forgetter.forgotten)
	assert.Equal(t, int64(1), f.repo.sessions[c.cookie.Value])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, router: f.router}
	c.fetchToken()

	rec := c.do(http.MethodPost, "/auth/login", `{"email":"admin@depot.local","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/auth/login", `{"email":"gone@depot.local","password":"secret123"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/auth/login", `{"email":"not-an-email","password":"secret123"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.repo.sessions)
}

func TestLoginRequiresCSRFHeader(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, router: f.router}
	c.fetchToken()
	c.token = ""

	rec := c.do(http.MethodPost, "/auth/login", `{"email":"admin@depot.local","password":"secret123"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEmulationLifecycle(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, router: f.router}
	c.login("admin@depot.local")

	rec := c.do(http.MethodPost, "/auth/emulate/2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeSession(t, rec)
	assert.Equal(t, int64(2), body.UserID)
	assert.Equal(t, int64(3), body.RoleID)
	require.NotNil(t, body.EmulatedBy)
	assert.Equal(t, int64(1), *body.EmulatedBy)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, int64(1), f.audit.logs[0].ActorID)
	assert.Equal(t, "emulation.start", f.audit.logs[0].Action)

	rec = c.do(http.MethodPost, "/auth/emulate/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeSession(t, rec)
	assert.Equal(t, int64(1), body.UserID)
	assert.Nil(t, body.EmulatedBy)

	rec = c.do(http.MethodPost, "/auth/emulate/stop", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmulationRejectsSelfAndInactiveTargets(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, router: f.router}
	c.login("admin@depot.local")

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/auth/emulate/1", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/auth/emulate/3", "").Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodPost, "/auth/emulate/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/auth/emulate/abc", "").Code)
	assert.Empty(t, f.audit.logs)
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newFixture(t)
	c := &client{t: t, router: f.router}
	c.login("picker@depot.local")
	sessionID := c.cookie.Value

	rec := c.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, -1, c.cookie.MaxAge)
	assert.NotContains(t, f.repo.sessions, sessionID)
}

package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "test_session", time.Hour, false), mr
}

func commitAndCookie(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestSessionPersistsActorAndValues(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	_, ok := sess.Actor()
	assert.False(t, ok)

	sess.SetActor(10, 2)
	sess.Set("flash", "hello")
	cookie := commitAndCookie(t, sm, sess)
	assert.Equal(t, sess.ID, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	loaded, err := sm.Load(ctx, requestWith(cookie))
	require.NoError(t, err)
	actor, ok := loaded.Actor()
	require.True(t, ok)
	assert.Equal(t, SessionActor{UserID: 10, RoleID: 2}, actor)
	assert.Equal(t, "hello", loaded.Get("flash"))
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestManager(t)

	sess, err := sm.Load(context.Background(), requestWith(&http.Cookie{Name: "test_session", Value: "missing"}))
	require.NoError(t, err)
	assert.NotEqual(t, "missing", sess.ID)
}

func TestSessionRenewDropsOldRecord(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	cookie := commitAndCookie(t, sm, sess)
	oldID := sess.ID

	loaded, err := sm.Load(ctx, requestWith(cookie))
	require.NoError(t, err)
	require.NoError(t, sm.Renew(ctx, loaded))
	assert.NotEqual(t, oldID, loaded.ID)
	assert.False(t, mr.Exists("depot:session:"+oldID))

	renewed := commitAndCookie(t, sm, loaded)
	assert.Equal(t, loaded.ID, renewed.Value)
	assert.True(t, mr.Exists("depot:session:"+loaded.ID))
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	commitAndCookie(t, sm, sess)
	require.True(t, mr.Exists("depot:session:"+sess.ID))

	sm.Destroy(sess)
	cookie := commitAndCookie(t, sm, sess)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.False(t, mr.Exists("depot:session:"+sess.ID))
}

func TestSessionEmulation(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWith(nil))
	require.NoError(t, err)
	sess.SetActor(1, 1)
	assert.False(t, sess.StopEmulation())

	sess.StartEmulation(SessionActor{UserID: 20, RoleID: 3})
	sess.StartEmulation(SessionActor{UserID: 30, RoleID: 4})

	loaded, err := sm.Load(ctx, requestWith(commitAndCookie(t, sm, sess)))
	require.NoError(t, err)
	actor, _ := loaded.Actor()
	assert.Equal(t, SessionActor{UserID: 30, RoleID: 4}, actor)
	original, ok := loaded.Emulator()
	require.True(t, ok)
	assert.Equal(t, SessionActor{UserID: 1, RoleID: 1}, original, "nested emulation keeps the real user")

	ctx = ContextWithSession(ctx, loaded)
	assert.Equal(t, int64(1), RealUserID(ctx))

	require.True(t, loaded.StopEmulation())
	actor, _ = loaded.Actor()
	assert.Equal(t, SessionActor{UserID: 1, RoleID: 1}, actor)
	_, ok = loaded.Emulator()
	assert.False(t, ok)

	loaded.StartEmulation(SessionActor{UserID: 20, RoleID: 3})
	loaded.SetActor(5, 5)
	_, ok = loaded.Emulator()
	assert.False(t, ok, "a new login clears emulation")
}

func TestRealUserIDWithoutSession(t *testing.T) {
	assert.Zero(t, RealUserID(context.Background()))
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)
}

func TestCSRFTokens(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "sess-1"}

	token, err := m.EnsureToken(sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)
	assert.NoError(t, m.VerifyToken(sess, token))

	assert.ErrorIs(t, m.VerifyToken(sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, m.VerifyToken(sess, token+"x"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(&Session{ID: "other"}, token), ErrCSRFTokenMissing)

	rotated, err := m.Rotate(sess)
	require.NoError(t, err)
	assert.NotEqual(t, token, rotated)
	assert.ErrorIs(t, m.VerifyToken(sess, token), ErrCSRFTokenMismatch)

	_, err = m.EnsureToken(nil)
	assert.ErrorIs(t, err, ErrCSRFTokenMissing)
}

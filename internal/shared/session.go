package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data. The acting identity is the user and role the
// request is evaluated as; while emulating, the original identity is kept aside.
type Session struct {
	ID        string
	values    map[string]string
	actor     SessionActor
	emulator  *SessionActor
	isNew     bool
	dirty     bool
	destroyed bool
}

// SessionActor is the identity stored in a session.
type SessionActor struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

type sessionPayload struct {
	Values   map[string]string `json:"values"`
	Actor    SessionActor      `json:"actor"`
	Emulator *SessionActor     `json:"emulator,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load loads the session named by the request cookie or starts a new one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:       cookie.Value,
		values:   stored.Values,
		actor:    stored.Actor,
		emulator: stored.Emulator,
	}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, Actor: sess.actor, Emulator: sess.emulator})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Renew gives the session a fresh identifier, dropping the old record on commit. Called
// on login so a pre-authentication session ID is never promoted.
func (sm *SessionManager) Renew(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	if !sess.isNew {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetActor records the authenticated identity and clears any emulation.
func (s *Session) SetActor(userID, roleID int64) {
	s.actor = SessionActor{UserID: userID, RoleID: roleID}
	s.emulator = nil
	s.dirty = true
}

// Actor returns the identity requests are evaluated as.
func (s *Session) Actor() (SessionActor, bool) {
	if s == nil || s.actor.UserID <= 0 {
		return SessionActor{}, false
	}
	return s.actor, true
}

// StartEmulation switches the acting identity to target, remembering the real one.
// Nested emulation keeps the original identity.
func (s *Session) StartEmulation(target SessionActor) {
	if s.emulator == nil {
		original := s.actor
		s.emulator = &original
	}
	s.actor = target
	s.dirty = true
}

// StopEmulation restores the real identity. It reports false when not emulating.
func (s *Session) StopEmulation() bool {
	if s.emulator == nil {
		return false
	}
	s.actor = *s.emulator
	s.emulator = nil
	s.dirty = true
	return true
}

// Emulator returns the real identity while emulating.
func (s *Session) Emulator() (SessionActor, bool) {
	if s == nil || s.emulator == nil {
		return SessionActor{}, false
	}
	return *s.emulator, true
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "depot:session:" + id
}

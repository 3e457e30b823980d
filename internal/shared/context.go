package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ActorFromContext returns the acting identity of the request session.
func ActorFromContext(ctx context.Context) (SessionActor, bool) {
	return SessionFromContext(ctx).Actor()
}

// RealUserID returns the authenticated user behind the request, looking through emulation.
// Audit entries use it so edits made while emulating are attributed to the real user.
func RealUserID(ctx context.Context) int64 {
	sess := SessionFromContext(ctx)
	if original, ok := sess.Emulator(); ok {
		return original.UserID
	}
	actor, _ := sess.Actor()
	return actor.UserID
}

// Package requestcontext provides HTTP-independent accessors for
// request-scoped values. Middleware sets them; services read them. Keeping
// the package free of net/http lets services avoid transport imports.
package requestcontext

import (
	"context"
	"time"

	"carehub/pkg/domain"
)

type (
	identityIDKey  struct{}
	sessionIDKey   struct{}
	roleKey        struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// IdentityID retrieves the authenticated identity ID from the context.
// Returns the zero value if not set.
func IdentityID(ctx context.Context) domain.IdentityID {
	if id, ok := ctx.Value(identityIDKey{}).(domain.IdentityID); ok {
		return id
	}
	return domain.IdentityID{}
}

// WithIdentityID injects an identity ID into the context.
func WithIdentityID(ctx context.Context, id domain.IdentityID) context.Context {
	return context.WithValue(ctx, identityIDKey{}, id)
}

// SessionID retrieves the session ID from the context.
func SessionID(ctx context.Context) domain.SessionID {
	if id, ok := ctx.Value(sessionIDKey{}).(domain.SessionID); ok {
		return id
	}
	return domain.SessionID{}
}

// WithSessionID injects a session ID into the context.
func WithSessionID(ctx context.Context, id domain.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// Role retrieves the authenticated role from the context. Empty when the
// request is anonymous.
func Role(ctx context.Context) domain.Role {
	if r, ok := ctx.Value(roleKey{}).(domain.Role); ok {
		return r
	}
	return ""
}

// WithRole injects the authenticated role into the context.
func WithRole(ctx context.Context, r domain.Role) context.Context {
	return context.WithValue(ctx, roleKey{}, r)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Now retrieves the request-scoped time, falling back to time.Now for
// non-HTTP contexts (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request-scoped clock. Tests use this to make lifecycle
// timestamps deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

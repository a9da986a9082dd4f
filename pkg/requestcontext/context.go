// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services and the audit trail consume them.
// Keeping the package free of net/http lets domain code import only what it
// needs.
package requestcontext

import "context"

type (
	userIDKey    struct{}
	userTypeKey  struct{}
	requestIDKey struct{}
)

// WithUserID returns a context carrying the authenticated user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user ID, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey{}).(string)
	return v
}

// WithUserType returns a context carrying the authenticated user's type.
func WithUserType(ctx context.Context, userType string) context.Context {
	return context.WithValue(ctx, userTypeKey{}, userType)
}

// UserType returns the authenticated user's type, or "".
func UserType(ctx context.Context) string {
	v, _ := ctx.Value(userTypeKey{}).(string)
	return v
}

// WithRequestID returns a context carrying the request correlation ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request correlation ID, or "".
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

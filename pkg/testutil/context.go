package testutil

import (
	"net/http"

	"analysthub/pkg/requestcontext"
)

// WithAuth returns r with user identity attached the way the auth
// middleware would after validating a token.
func WithAuth(r *http.Request, userID, userType string) *http.Request {
	ctx := requestcontext.WithUserID(r.Context(), userID)
	ctx = requestcontext.WithUserType(ctx, userType)
	return r.WithContext(ctx)
}

// WithRequestID returns r with a request ID attached to its context.
func WithRequestID(r *http.Request, id string) *http.Request {
	return r.WithContext(requestcontext.WithRequestID(r.Context(), id))
}

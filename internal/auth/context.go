// ABOUTME: Identity propagation through request handlers
// ABOUTME: Provides WithIdentity/FromContext for passing the authenticated user via context

package auth

import (
	"context"
)

// Identity is the authenticated user attached to a request
type Identity struct {
	UserID   string
	Username string
	Admin    bool
}

type identityKey struct{}

// WithIdentity returns a new context with the Identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext retrieves the Identity from the context, returning nil if not present.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

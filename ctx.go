package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the fiber locals key the middleware stores the
// resolved identity under
const DefaultContextKey = "user"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// WithContext sets the resolved identity in the given context
func WithContext(ctx context.Context, identity *ResolvedIdentity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// FromContext finds the resolved identity in the context.
func FromContext(ctx context.Context) (*ResolvedIdentity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*ResolvedIdentity)
	return raw, ok && raw != nil
}

// GetIdentity extracts the resolved identity from the fiber locals
func GetIdentity(c *fiber.Ctx, key string) (*ResolvedIdentity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw, ok := c.Locals(key).(*ResolvedIdentity)
	return raw, ok && raw != nil
}

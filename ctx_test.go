package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-users"
)

func TestContextRoundTrip(t *testing.T) {
	identity := &auth.ResolvedIdentity{
		UserIdentity: auth.UserIdentity{UserName: "alice", UserRole: auth.RoleUser, Active: true},
	}

	ctx := auth.WithContext(context.Background(), identity)
	got, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, identity, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.FromContext(auth.WithContext(context.Background(), nil))
	assert.False(t, ok)
}

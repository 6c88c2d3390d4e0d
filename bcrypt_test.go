package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-auth-users"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Short password",
			password: "pw123",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := testHasher.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, auth.HasTextCode(err, auth.TextCodeEmptyPassword))
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotContains(t, hash, tt.password)
			assert.NoError(t, testHasher.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	first, err := testHasher.HashPassword("same-password")
	require.NoError(t, err)
	second, err := testHasher.HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, testHasher.Verify("same-password", first))
	assert.True(t, testHasher.Verify("same-password", second))
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := testHasher.HashPassword(password)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
		},
		{
			name:     "Wrong password",
			password: "wrongPassword123!",
			hash:     hash,
			wantErr:  auth.ErrMismatchedHashAndPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testHasher.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestVerify_FailsClosedOnMalformedHash(t *testing.T) {
	for _, hash := range []string{"", "not-a-hash", "$2a$04$short"} {
		assert.False(t, testHasher.Verify("anything", hash), hash)
	}
}

func TestNewBcryptHasher_OutOfRangeCostFallsBack(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MaxCost + 1)

	hash, err := auth.NewBcryptHasher(bcrypt.MinCost).HashPassword("pw")
	require.NoError(t, err)

	// verification does not depend on the hasher's own cost
	assert.True(t, hasher.Verify("pw", hash))

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

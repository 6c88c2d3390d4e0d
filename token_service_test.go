package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-users"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokenService(clock *fakeClock) *auth.TokenServiceImpl {
	return auth.NewTokenService([]byte("test-signing-key"), "test-issuer", nil).WithClock(clock.Now)
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(clock)

	token, err := ts.Issue("alice", auth.RoleUser, 30*time.Minute)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := ts.Decode(token)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Subject())
	assert.Equal(t, auth.RoleUser, claims.Role())
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, clock.now.Equal(claims.IssuedAt()))
	assert.True(t, clock.now.Add(30*time.Minute).Equal(claims.Expires()))
}

func TestTokenService_UniqueTokenIDs(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts := newTestTokenService(clock)

	first, err := ts.Issue("alice", auth.RoleUser, time.Minute)
	require.NoError(t, err)
	second, err := ts.Issue("alice", auth.RoleUser, time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestTokenService_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	ts := newTestTokenService(clock)

	token, err := ts.Issue("alice", auth.RoleUser, time.Minute)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = ts.Decode(token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = ts.Decode(token)
	require.Error(t, err)
	assert.True(t, auth.IsTokenExpiredError(err))
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenExpired))
}

func TestTokenService_TamperedTokenRejected(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts := newTestTokenService(clock)

	token, err := ts.Issue("alice", auth.RoleUser, time.Hour)
	require.NoError(t, err)

	// every position is swapped for another base64url character
	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}

		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		_, err := ts.Decode(tampered)
		require.Error(t, err, "byte %d", i)
		assert.True(t, auth.IsMalformedError(err), "byte %d: %v", i, err)
		assert.False(t, auth.IsTokenExpiredError(err))
	}
}

func TestTokenService_WrongKeyRejected(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts := newTestTokenService(clock)
	other := auth.NewTokenService([]byte("other-key"), "test-issuer", nil).WithClock(clock.Now)

	token, err := other.Issue("alice", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = ts.Decode(token)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenInvalidSignature))
}

func TestTokenService_WrongIssuerRejected(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts := newTestTokenService(clock)
	other := auth.NewTokenService([]byte("test-signing-key"), "someone-else", nil).WithClock(clock.Now)

	token, err := other.Issue("alice", auth.RoleUser, time.Hour)
	require.NoError(t, err)

	_, err = ts.Decode(token)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeTokenMalformed))
}

func TestTokenService_RejectsNoneAndOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts := newTestTokenService(clock)

	claims := jwt.MapClaims{
		"sub": "alice",
		"iss": "test-issuer",
		"exp": clock.now.Add(time.Hour).Unix(),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ts.Decode(none)
	assert.Error(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	_, err = ts.Decode(hs512)
	assert.Error(t, err)
}

func TestTokenService_RequiresExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	ts := newTestTokenService(clock)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"iss": "test-issuer",
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	_, err = ts.Decode(token)
	assert.Error(t, err)
}

func TestTokenService_DecodeGarbage(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: time.Now()})

	_, err := ts.Decode("")
	assert.True(t, auth.HasTextCode(err, auth.TextCodeMissingToken))

	_, err = ts.Decode("not.a.token")
	assert.True(t, auth.IsMalformedError(err))
}

func TestTokenService_IssueValidation(t *testing.T) {
	ts := newTestTokenService(&fakeClock{now: time.Now()})

	_, err := ts.Issue("", auth.RoleUser, time.Hour)
	assert.Error(t, err)

	_, err = ts.Issue("alice", auth.RoleUser, 0)
	assert.Error(t, err)
}

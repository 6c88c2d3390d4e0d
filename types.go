package auth

import (
	"context"
	"log/slog"
	"time"
)

// Logger is satisfied by *slog.Logger
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	Username() string
	Role() Role
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetPasswordCost() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetContextKey() string
}

// UserStore is the persistence collaborator the core reads credentials from.
// Each method must be atomic from the caller's point of view.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	Update(ctx context.Context, username string, fields UserUpdate) (*User, error)
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]*User, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
	Verify(password, hash string) bool
}

// TokenService issues and decodes access tokens
type TokenService interface {
	Issue(subject string, role Role, ttl time.Duration) (string, error)
	Decode(token string) (*JWTClaims, error)
}

func defLogger() Logger {
	return slog.Default().With("component", "auth")
}

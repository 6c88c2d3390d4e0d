package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultTokenTTL = 30 * time.Minute

// AccessToken is returned by a successful login
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Auther struct {
	store        UserStore
	hasher       PasswordAuthenticator
	tokenService TokenService
	tokenTTL     time.Duration
	logger       Logger
	activitySink ActivitySink
	metrics      *Metrics
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store UserStore, opts Config) *Auther {
	logger := defLogger()

	ttl := opts.GetTokenTTL()
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return &Auther{
		store:        store,
		hasher:       NewBcryptHasher(opts.GetPasswordCost()),
		tokenService: NewTokenService([]byte(opts.GetSigningKey()), opts.GetIssuer(), logger),
		tokenTTL:     ttl,
		logger:       logger,
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	if ts, ok := s.tokenService.(*TokenServiceImpl); ok {
		ts.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithMetrics configures the login counters
func (s *Auther) WithMetrics(m *Metrics) *Auther {
	s.metrics = m
	return s
}

// WithTokenService replaces the token codec
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	s.tokenService = ts
	return s
}

// WithPasswordHasher replaces the password hasher
func (s *Auther) WithPasswordHasher(h PasswordAuthenticator) *Auther {
	s.hasher = h
	return s
}

// WithClock sets the time source used for expires_at
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// PasswordHasher returns the hasher used by this Authenticator
func (s *Auther) PasswordHasher() PasswordAuthenticator {
	return s.hasher
}

// Authenticate checks a username and password pair. An unknown username and
// a wrong password are indistinguishable to the caller.
func (s *Auther) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	user, err := s.verify(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return user.Identity(), nil
}

func (s *Auther) verify(ctx context.Context, username, password string) (*User, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			s.hasher.Verify(password, s.fallbackHash())
			return nil, ErrInvalidCredentials
		}
		return nil, storeUnavailable(err, "find_by_username")
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// CreateAccessToken issues a token for identity with the configured TTL
func (s *Auther) CreateAccessToken(identity Identity) (string, error) {
	return s.tokenService.Issue(identity.Username(), identity.Role(), s.tokenTTL)
}

// Login authenticates, rejects inactive accounts, and issues a token
func (s *Auther) Login(ctx context.Context, username, password string) (*AccessToken, error) {
	user, err := s.verify(ctx, username, password)
	if err != nil {
		outcome := outcomeFailure
		if HasTextCode(err, TextCodeStoreUnavailable) {
			outcome = outcomeError
			s.logger.Error("Login store lookup failed", "error", err)
		} else {
			s.logger.Warn("Login rejected", "username", username)
		}
		s.metrics.loginAttempt(outcome)
		s.emitLoginEvent(ctx, ActivityEventLoginFailure, username, map[string]any{
			"reason": errorTextCode(err),
		})
		return nil, err
	}

	if !user.Active {
		s.logger.Warn("Login blocked for inactive user", "username", username)
		s.metrics.loginAttempt(outcomeInactive)
		s.emitLoginEvent(ctx, ActivityEventLoginFailure, username, map[string]any{
			"reason": TextCodeUserInactive,
		})
		return nil, ErrUserInactive
	}

	issuedAt := s.now()
	token, err := s.CreateAccessToken(user.Identity())
	if err != nil {
		s.logger.Error("Login failed to issue token", "error", err)
		s.metrics.loginAttempt(outcomeError)
		s.emitLoginEvent(ctx, ActivityEventLoginFailure, username, map[string]any{
			"reason": errorTextCode(err),
		})
		return nil, err
	}

	s.metrics.loginAttempt(outcomeSuccess)
	s.emitLoginEvent(ctx, ActivityEventLoginSuccess, username, nil)

	return &AccessToken{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   issuedAt.Add(s.tokenTTL).Truncate(time.Second),
	}, nil
}

// staticFallbackHash is a cost 12 bcrypt hash of a discarded random secret.
// It stands in when the fallback hash cannot be built at runtime.
const staticFallbackHash = "$2b$12$DIuTg4G5vaBu.TP0fGMwIOKBCL.5EPJT0Xl44hywSmiBaIKvWyFLm"

// fallbackHash is a hash of a random secret, compared against when the
// username does not exist so both failure paths pay for one bcrypt compare.
func (s *Auther) fallbackHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.HashPassword(uuid.NewString())
		if err != nil {
			s.logger.Error("failed to build fallback hash, using static hash", "error", err)
			hash = staticFallbackHash
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Auther) emitLoginEvent(ctx context.Context, eventType ActivityEventType, username string, metadata map[string]any) {
	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: eventType,
		Actor:     username,
		Username:  username,
		Metadata:  metadata,
	})
}

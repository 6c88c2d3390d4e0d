package auth

import (
	"context"
	"time"
)

// ResolvedIdentity is the authenticated caller of one request. Role and
// Active come from the store at resolution time, not from the token.
type ResolvedIdentity struct {
	UserIdentity
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

var _ Identity = (*ResolvedIdentity)(nil)

// SessionResolver turns a bearer token into a ResolvedIdentity
type SessionResolver struct {
	tokens  TokenService
	store   UserStore
	logger  Logger
	metrics *Metrics
}

// NewSessionResolver creates a resolver
func NewSessionResolver(tokens TokenService, store UserStore) *SessionResolver {
	return &SessionResolver{
		tokens: tokens,
		store:  store,
		logger: defLogger(),
	}
}

func (r *SessionResolver) WithLogger(logger Logger) *SessionResolver {
	r.logger = logger
	return r
}

func (r *SessionResolver) WithMetrics(m *Metrics) *SessionResolver {
	r.metrics = m
	return r
}

// Resolve decodes token and re-reads its subject. A token whose user was
// deleted or deactivated after issue is rejected.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*ResolvedIdentity, error) {
	claims, err := r.tokens.Decode(token)
	if err != nil {
		outcome := outcomeInvalid
		if IsTokenExpiredError(err) {
			outcome = outcomeExpired
		}
		r.logger.Debug("session token rejected", "error", err)
		r.metrics.sessionResolution(outcome)
		return nil, err
	}

	user, err := r.store.FindByUsername(ctx, claims.Subject())
	if err != nil {
		if HasTextCode(err, TextCodeUserNotFound) {
			r.logger.Warn("session subject no longer exists", "username", claims.Subject())
			r.metrics.sessionResolution(outcomeNotFound)
			return nil, ErrUserNotFound
		}
		r.logger.Error("session store lookup failed", "error", err)
		r.metrics.sessionResolution(outcomeError)
		return nil, storeUnavailable(err, "find_by_username")
	}

	if !user.Active {
		r.logger.Warn("session subject is inactive", "username", user.Username)
		r.metrics.sessionResolution(outcomeInactive)
		return nil, ErrUserInactive
	}

	r.metrics.sessionResolution(outcomeSuccess)

	return &ResolvedIdentity{
		UserIdentity: user.Identity(),
		TokenID:      claims.ID,
		ExpiresAt:    claims.Expires(),
	}, nil
}

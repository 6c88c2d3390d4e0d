package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeInactive = "inactive"
	outcomeError    = "error"
	outcomeAllowed  = "allowed"
	outcomeDenied   = "denied"
	outcomeExpired  = "expired"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
)

// Metrics groups the auth counters. A nil *Metrics records nothing.
type Metrics struct {
	loginAttempts      *prometheus.CounterVec
	sessionResolutions *prometheus.CounterVec
	permissionChecks   *prometheus.CounterVec
}

// NewMetrics registers the auth counters on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		loginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		sessionResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_session_resolutions_total",
			Help: "Bearer token resolutions by outcome.",
		}, []string{"outcome"}),
		permissionChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_permission_checks_total",
			Help: "Role checks by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) loginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) sessionResolution(outcome string) {
	if m == nil {
		return
	}
	m.sessionResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) permissionCheck(outcome string) {
	if m == nil {
		return
	}
	m.permissionChecks.WithLabelValues(outcome).Inc()
}

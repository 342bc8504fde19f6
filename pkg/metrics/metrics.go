package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all authentication-domain metrics
type Metrics struct {
	LoginAttempts   *prometheus.CounterVec
	Lockouts        prometheus.Counter
	OTPChallenges   *prometheus.CounterVec
	SessionExpiries prometheus.Counter
	PasswordChanges *prometheus.CounterVec
	AuditAppends    *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by outcome",
		}, []string{"outcome"}),
		Lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_lockouts_total",
			Help:      "Total number of accounts transitioned to locked",
		}),
		OTPChallenges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otp_challenges_total",
			Help:      "Total number of OTP challenges by result",
		}, []string{"result"}),
		SessionExpiries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_expiries_total",
			Help:      "Total number of sessions rejected as expired",
		}),
		PasswordChanges: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_changes_total",
			Help:      "Total number of password change attempts by outcome",
		}, []string{"outcome"}),
		AuditAppends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_appends_total",
			Help:      "Total number of audit log appends by status",
		}, []string{"status"}),
	}
}

// Login attempt outcomes
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid_credentials"
	OutcomeLocked      = "locked"
	OutcomeOTPRequired = "otp_required"
)

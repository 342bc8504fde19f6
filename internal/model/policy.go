package model

import (
	"time"

	"github.com/google/uuid"
)

// PasswordPolicy is the singleton configuration controlling password
// complexity, expiration, lockout and session timeout. Exactly one row
// exists; it is re-read before every authentication decision and written only
// through the admin settings endpoint. Last write wins.
type PasswordPolicy struct {
	ID                     uuid.UUID `json:"id" db:"id"`
	Enabled                bool      `json:"enabled" db:"enabled"`
	MinimumLength          *int      `json:"minimum_length" db:"minimum_length"`
	RequireDigit           bool      `json:"require_digit" db:"require_digit"`
	RequireUppercase       bool      `json:"require_uppercase" db:"require_uppercase"`
	RequireSpecial         bool      `json:"require_special" db:"require_special"`
	PasswordExpirationDays int       `json:"password_expiration_days" db:"password_expiration_days"`
	EnableAuditLog         bool      `json:"enable_audit_log" db:"enable_audit_log"`
	MaxLoginAttempts       int       `json:"max_login_attempts" db:"max_login_attempts"`
	LockoutDurationMinutes int       `json:"lockout_duration_minutes" db:"lockout_duration_minutes"`
	SessionTimeoutMinutes  int       `json:"session_timeout_minutes" db:"session_timeout_minutes"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultPasswordPolicy returns the settings used when no policy row exists
// yet. Complexity rules start disabled; lockout and audit logging start on.
func DefaultPasswordPolicy() *PasswordPolicy {
	minLen := 8
	return &PasswordPolicy{
		Enabled:                false,
		MinimumLength:          &minLen,
		RequireDigit:           false,
		RequireUppercase:       false,
		RequireSpecial:         false,
		PasswordExpirationDays: 0,
		EnableAuditLog:         true,
		MaxLoginAttempts:       5,
		LockoutDurationMinutes: 15,
		SessionTimeoutMinutes:  10,
	}
}

// LockoutDuration returns the lockout window length.
func (p *PasswordPolicy) LockoutDuration() time.Duration {
	return time.Duration(p.LockoutDurationMinutes) * time.Minute
}

// LockoutEnabled reports whether failed-attempt limiting is active.
func (p *PasswordPolicy) LockoutEnabled() bool {
	return p.MaxLoginAttempts > 0
}

// SessionTimeout returns the sliding session expiry, or zero when disabled.
func (p *PasswordPolicy) SessionTimeout() time.Duration {
	if p.SessionTimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(p.SessionTimeoutMinutes) * time.Minute
}

// UpdatePolicyRequest represents the admin settings form.
type UpdatePolicyRequest struct {
	Enabled                bool `json:"enabled"`
	MinimumLength          *int `json:"minimum_length" binding:"omitempty,min=1,max=128"`
	RequireDigit           bool `json:"require_digit"`
	RequireUppercase       bool `json:"require_uppercase"`
	RequireSpecial         bool `json:"require_special"`
	PasswordExpirationDays int  `json:"password_expiration_days" binding:"min=0"`
	EnableAuditLog         bool `json:"enable_audit_log"`
	MaxLoginAttempts       int  `json:"max_login_attempts" binding:"min=0"`
	LockoutDurationMinutes int  `json:"lockout_duration_minutes" binding:"min=0"`
	SessionTimeoutMinutes  int  `json:"session_timeout_minutes" binding:"min=0"`
}

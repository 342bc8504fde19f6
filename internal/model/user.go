package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// PasswordHistoryLimit bounds the number of prior hashes kept per user.
const PasswordHistoryLimit = 5

// User represents a portal account
type User struct {
	ID                     uuid.UUID      `json:"id" db:"id"`
	Username               string         `json:"username" db:"username"`
	FullName               string         `json:"full_name" db:"full_name"`
	Email                  *string        `json:"email,omitempty" db:"email"`
	PasswordHash           string         `json:"-" db:"password_hash"`
	Role                   string         `json:"role" db:"role"`
	Blocked                bool           `json:"blocked" db:"blocked"`
	PasswordExpirationDays *int           `json:"password_expiration_days" db:"password_expiration_days"`
	PasswordLastSet        *time.Time     `json:"password_last_set" db:"password_last_set"`
	MustChangePassword     bool           `json:"must_change_password" db:"must_change_password"`
	PasswordHistory        pq.StringArray `json:"-" db:"password_history"`
	FailedLoginAttempts    int            `json:"-" db:"failed_login_attempts"`
	LockedUntil            *time.Time     `json:"-" db:"locked_until"`
	OTPEnabled             bool           `json:"otp_enabled" db:"otp_enabled"`
	ContentUnlocked        bool           `json:"content_unlocked" db:"content_unlocked"`
	Version                int            `json:"-" db:"version"`
	CreatedAt              time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsLocked reports whether a lockout window is open at the given instant.
// An elapsed window counts as unlocked; the stale fields are cleared lazily
// on the next login attempt.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// PushPasswordHistory appends a hash to the history and evicts the oldest
// entries beyond PasswordHistoryLimit.
func (u *User) PushPasswordHistory(hash string) {
	u.PasswordHistory = append(u.PasswordHistory, hash)
	for len(u.PasswordHistory) > PasswordHistoryLimit {
		u.PasswordHistory = u.PasswordHistory[1:]
	}
}

// CanonicalUsername normalizes a username for lookup and storage. The system
// treats usernames case-insensitively to close the duplicate-account
// loophole that case-sensitive matching leaves open.
func CanonicalUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// CreateUserRequest represents admin user creation parameters
type CreateUserRequest struct {
	Username string  `json:"username" binding:"required,max=64,username"`
	FullName string  `json:"full_name" binding:"required"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password string  `json:"password" binding:"required"`
	Role     string  `json:"role" binding:"required,oneof=admin user"`
}

// UpdateUserRequest represents admin user update parameters. Nil fields keep
// their current value; a non-nil NewPassword goes through the same policy and
// history checks as a self-service change.
type UpdateUserRequest struct {
	FullName               *string `json:"full_name"`
	Email                  *string `json:"email" binding:"omitempty,email"`
	Role                   *string `json:"role" binding:"omitempty,oneof=admin user"`
	PasswordExpirationDays *int    `json:"password_expiration_days" binding:"omitempty,min=0"`
	OTPEnabled             *bool   `json:"otp_enabled"`
	NewPassword            *string `json:"new_password"`
}

// RegisterRequest represents self-service sign-up parameters
type RegisterRequest struct {
	Username     string  `json:"username" binding:"required,max=64,username"`
	FullName     string  `json:"full_name" binding:"required"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Password     string  `json:"password" binding:"required"`
	CaptchaToken string  `json:"captcha_token"`
}

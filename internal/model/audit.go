package model

import (
	"time"

	"github.com/google/uuid"
)

// Audit actor used when identity cannot be resolved, e.g. session expiry.
const AuditActorUnknown = "unknown"

// Audit action categories
const (
	AuditActionLogin          = "login"
	AuditActionLoginOTP       = "login_otp"
	AuditActionFailedLogin    = "failed_login"
	AuditActionLockout        = "lockout"
	AuditActionLogout         = "logout"
	AuditActionSessionExpiry  = "session_expiry"
	AuditActionPasswordChange = "password_change"
	AuditActionUserAdmin      = "user_admin"
	AuditActionPolicyChange   = "policy_change"
	AuditActionContentAccess  = "content_access"
	AuditActionRegister       = "register"
)

// AuditLog is an append-only record of a security-relevant event. Entries are
// never updated or deleted by the core.
type AuditLog struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	Action      string    `json:"action" db:"action"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// AuditLogFilter represents audit browsing parameters.
type AuditLogFilter struct {
	Username  string     `json:"username" form:"username"`
	Action    string     `json:"action" form:"action"`
	StartDate *time.Time `json:"start_date" form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `json:"end_date" form:"end_date" time_format:"2006-01-02"`
	Page      int        `json:"page" form:"page"`
	PageSize  int        `json:"page_size" form:"page_size"`
}

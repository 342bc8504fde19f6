package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
)

type policyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) repository.PolicyRepository {
	return &policyRepository{db: db}
}

// Load returns the single policy row. The table holds at most one row; the
// newest wins if an older deployment ever left more than one behind.
func (r *policyRepository) Load(ctx context.Context) (*model.PasswordPolicy, error) {
	query := `SELECT * FROM password_policy ORDER BY updated_at DESC LIMIT 1`

	var policy model.PasswordPolicy
	if err := r.db.GetContext(ctx, &policy, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load password policy: %w", err)
	}

	return &policy, nil
}

func (r *policyRepository) Save(ctx context.Context, policy *model.PasswordPolicy) error {
	existing, err := r.Load(ctx)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	policy.UpdatedAt = time.Now()

	if existing == nil {
		policy.ID = uuid.New()
		query := `
			INSERT INTO password_policy (
				id, enabled, minimum_length, require_digit, require_uppercase,
				require_special, password_expiration_days, enable_audit_log,
				max_login_attempts, lockout_duration_minutes,
				session_timeout_minutes, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		if _, err := r.db.ExecContext(ctx, query,
			policy.ID,
			policy.Enabled,
			policy.MinimumLength,
			policy.RequireDigit,
			policy.RequireUppercase,
			policy.RequireSpecial,
			policy.PasswordExpirationDays,
			policy.EnableAuditLog,
			policy.MaxLoginAttempts,
			policy.LockoutDurationMinutes,
			policy.SessionTimeoutMinutes,
			policy.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert password policy: %w", err)
		}
		return nil
	}

	policy.ID = existing.ID
	query := `
		UPDATE password_policy SET
			enabled = $1,
			minimum_length = $2,
			require_digit = $3,
			require_uppercase = $4,
			require_special = $5,
			password_expiration_days = $6,
			enable_audit_log = $7,
			max_login_attempts = $8,
			lockout_duration_minutes = $9,
			session_timeout_minutes = $10,
			updated_at = $11
		WHERE id = $12
	`
	if _, err := r.db.ExecContext(ctx, query,
		policy.Enabled,
		policy.MinimumLength,
		policy.RequireDigit,
		policy.RequireUppercase,
		policy.RequireSpecial,
		policy.PasswordExpirationDays,
		policy.EnableAuditLog,
		policy.MaxLoginAttempts,
		policy.LockoutDurationMinutes,
		policy.SessionTimeoutMinutes,
		policy.UpdatedAt,
		policy.ID,
	); err != nil {
		return fmt.Errorf("failed to update password policy: %w", err)
	}

	return nil
}

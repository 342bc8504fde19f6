package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
)

// Service owns the password policy singleton. Reads go to the store every
// time, so an admin change takes effect on the next authentication decision;
// there is deliberately no in-process caching of the snapshot.
type Service struct {
	repo repository.PolicyRepository
}

func NewService(repo repository.PolicyRepository) *Service {
	return &Service{repo: repo}
}

// Get returns the current policy, falling back to defaults when no row has
// been saved yet. Store failures propagate; authentication cannot proceed
// without knowing the rules.
func (s *Service) Get(ctx context.Context) (*model.PasswordPolicy, error) {
	policy, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DefaultPasswordPolicy(), nil
		}
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return policy, nil
}

// Save persists the policy. Last write wins; there is no versioning.
func (s *Service) Save(ctx context.Context, req *model.UpdatePolicyRequest) (*model.PasswordPolicy, error) {
	policy := &model.PasswordPolicy{
		Enabled:                req.Enabled,
		MinimumLength:          req.MinimumLength,
		RequireDigit:           req.RequireDigit,
		RequireUppercase:       req.RequireUppercase,
		RequireSpecial:         req.RequireSpecial,
		PasswordExpirationDays: req.PasswordExpirationDays,
		EnableAuditLog:         req.EnableAuditLog,
		MaxLoginAttempts:       req.MaxLoginAttempts,
		LockoutDurationMinutes: req.LockoutDurationMinutes,
		SessionTimeoutMinutes:  req.SessionTimeoutMinutes,
	}

	if err := s.repo.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}
	return policy, nil
}

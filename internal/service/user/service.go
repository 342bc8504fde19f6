package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mzalewski/secadmin-api/internal/email"
	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
	"github.com/mzalewski/secadmin-api/internal/service/audit"
	"github.com/mzalewski/secadmin-api/internal/service/policy"
	"github.com/mzalewski/secadmin-api/pkg/apperror"
	"github.com/mzalewski/secadmin-api/pkg/logger"
	"github.com/mzalewski/secadmin-api/pkg/metrics"
	"github.com/mzalewski/secadmin-api/pkg/security"
)

// Service covers account lifecycle: registration, the password change flow,
// and the admin panel operations.
type Service struct {
	users     repository.UserRepository
	policySvc *policy.Service
	auditor   *audit.Service
	hasher    security.PasswordHasher
	emailSvc  email.Service
	metrics   *metrics.Metrics
	log       *logger.Logger

	// contentKey is the licence key that unlocks the protected content
	// viewer for an account.
	contentKey string
}

func NewService(
	users repository.UserRepository,
	policySvc *policy.Service,
	auditor *audit.Service,
	hasher security.PasswordHasher,
	emailSvc email.Service,
	m *metrics.Metrics,
	log *logger.Logger,
	contentKey string,
) *Service {
	return &Service{
		users:      users,
		policySvc:  policySvc,
		auditor:    auditor,
		hasher:     hasher,
		emailSvc:   emailSvc,
		metrics:    m,
		log:        log,
		contentKey: contentKey,
	}
}

// Register creates a self-service account. Registered users always get the
// user role; admins are provisioned through Create.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	u, err := s.create(ctx, req.Username, req.FullName, req.Email, req.Password, model.RoleUser)
	if err != nil {
		return nil, err
	}
	s.auditor.Append(ctx, u.Username, model.AuditActionRegister, "account registered")
	return u, nil
}

// Create provisions an account with an explicit role (admin entry point).
func (s *Service) Create(ctx context.Context, actor string, req *model.CreateUserRequest) (*model.User, error) {
	u, err := s.create(ctx, req.Username, req.FullName, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	s.auditor.Append(ctx, actor, model.AuditActionUserAdmin,
		fmt.Sprintf("created account %q with role %s", u.Username, u.Role))
	return u, nil
}

func (s *Service) create(ctx context.Context, username, fullName string, emailAddr *string, password, role string) (*model.User, error) {
	p, err := s.policySvc.Get(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if v := policy.Validate(password, p); v != nil {
		return nil, apperror.PolicyViolation(v.Message)
	}

	canonical := model.CanonicalUsername(username)
	if _, err := s.users.GetByUsername(ctx, canonical); err == nil {
		return nil, apperror.Conflict("a user with this username already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Internal(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := time.Now().UTC()
	user := &model.User{
		Username:        canonical,
		FullName:        fullName,
		Email:           emailAddr,
		PasswordHash:    hash,
		Role:            role,
		PasswordLastSet: &now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperror.Internal(err)
	}
	return user, nil
}

// ChangePassword is the self-service flow. Checks run in order, each
// short-circuiting: old password, complexity rules, history reuse. Success
// rotates the history, clears the forced-change flag and stamps the change
// time.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.InvalidCredentials()
		}
		return apperror.Internal(err)
	}

	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		s.metrics.PasswordChanges.WithLabelValues("rejected").Inc()
		return apperror.PolicyViolation("old password is incorrect")
	}

	if err := s.applyNewPassword(ctx, user, newPassword); err != nil {
		s.metrics.PasswordChanges.WithLabelValues("rejected").Inc()
		return err
	}

	user.MustChangePassword = false
	if err := s.users.Update(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrVersionConflict) {
			return apperror.Internal(err)
		}
		// A concurrent login attempt bumped the version; its counters win,
		// the rotated credential fields are re-applied on a fresh read.
		s.log.Debug("password change update lost race, retrying", "username", user.Username)
		fresh, rerr := s.users.GetByUsername(ctx, username)
		if rerr != nil {
			return apperror.Internal(rerr)
		}
		fresh.PasswordHash = user.PasswordHash
		fresh.PasswordHistory = user.PasswordHistory
		fresh.PasswordLastSet = user.PasswordLastSet
		fresh.MustChangePassword = false
		if uerr := s.users.Update(ctx, fresh); uerr != nil {
			return apperror.Internal(uerr)
		}
		user = fresh
	}

	s.auditor.Append(ctx, user.Username, model.AuditActionPasswordChange, "password changed")
	s.metrics.PasswordChanges.WithLabelValues("success").Inc()
	return nil
}

// applyNewPassword validates the candidate against policy and history, then
// rotates the hash. The caller persists.
func (s *Service) applyNewPassword(ctx context.Context, user *model.User, newPassword string) error {
	p, err := s.policySvc.Get(ctx)
	if err != nil {
		return apperror.Internal(err)
	}
	if v := policy.Validate(newPassword, p); v != nil {
		return apperror.PolicyViolation(v.Message)
	}

	// History reuse is never gated by the policy's enabled flag.
	for _, oldHash := range user.PasswordHistory {
		if s.hasher.Verify(newPassword, oldHash) {
			return apperror.PolicyViolation(
				fmt.Sprintf("new password must differ from the last %d passwords", model.PasswordHistoryLimit))
		}
	}
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return apperror.PolicyViolation(
			fmt.Sprintf("new password must differ from the last %d passwords", model.PasswordHistoryLimit))
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperror.Internal(err)
	}

	user.PushPasswordHistory(user.PasswordHash)
	user.PasswordHash = hash
	now := time.Now().UTC()
	user.PasswordLastSet = &now
	return nil
}

// Update is the admin edit entry point: role, full name, e-mail, expiration
// override and the OTP toggle change without the old password. A supplied
// new password still goes through the same policy and history checks.
func (s *Service) Update(ctx context.Context, actor string, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("user", err)
		}
		return nil, apperror.Internal(err)
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Email != nil {
		user.Email = req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.PasswordExpirationDays != nil {
		user.PasswordExpirationDays = req.PasswordExpirationDays
	}
	if req.OTPEnabled != nil {
		user.OTPEnabled = *req.OTPEnabled
	}
	if req.NewPassword != nil && *req.NewPassword != "" {
		if err := s.applyNewPassword(ctx, user, *req.NewPassword); err != nil {
			return nil, err
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperror.Internal(err)
	}

	s.auditor.Append(ctx, actor, model.AuditActionUserAdmin,
		fmt.Sprintf("updated account %q", user.Username))
	return user, nil
}

// SetBlocked flips the admin block flag. Blocking is independent of lockout
// and does not expire.
func (s *Service) SetBlocked(ctx context.Context, actor string, id uuid.UUID, blocked bool) error {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user", err)
		}
		return apperror.Internal(err)
	}

	user.Blocked = blocked
	if err := s.users.Update(ctx, user); err != nil {
		return apperror.Internal(err)
	}

	verb := "unblocked"
	if blocked {
		verb = "blocked"
	}
	s.auditor.Append(ctx, actor, model.AuditActionUserAdmin,
		fmt.Sprintf("%s account %q", verb, user.Username))
	return nil
}

// ForcePasswordChange flags the account so the session guard routes every
// request to the change-password flow until a new password is set.
func (s *Service) ForcePasswordChange(ctx context.Context, actor string, id uuid.UUID) error {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user", err)
		}
		return apperror.Internal(err)
	}

	user.MustChangePassword = true
	if err := s.users.Update(ctx, user); err != nil {
		return apperror.Internal(err)
	}

	s.auditor.Append(ctx, actor, model.AuditActionUserAdmin,
		fmt.Sprintf("forced password change for account %q", user.Username))
	if err := s.emailSvc.NotifyForcedPasswordChange(ctx, user); err != nil {
		s.log.Error(err, "forced-change notification failed", "username", user.Username)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, actor string, id uuid.UUID) error {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user", err)
		}
		return apperror.Internal(err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return apperror.Internal(err)
	}
	s.auditor.Append(ctx, actor, model.AuditActionUserAdmin,
		fmt.Sprintf("deleted account %q", user.Username))
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("user", err)
		}
		return nil, apperror.Internal(err)
	}
	return user, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NotFound("user", err)
		}
		return nil, apperror.Internal(err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return users, nil
}

// UnlockContent compares the submitted licence key against the configured
// master key and marks the account's content viewer as unlocked.
func (s *Service) UnlockContent(ctx context.Context, username, licenceKey string) error {
	if s.contentKey == "" || licenceKey != s.contentKey {
		s.auditor.Append(ctx, username, model.AuditActionContentAccess,
			"failed content unlock attempt (invalid licence key)")
		return apperror.Forbidden("invalid licence key")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("user", err)
		}
		return apperror.Internal(err)
	}

	if !user.ContentUnlocked {
		user.ContentUnlocked = true
		if err := s.users.Update(ctx, user); err != nil {
			return apperror.Internal(err)
		}
	}

	s.auditor.Append(ctx, username, model.AuditActionContentAccess, "content viewer unlocked")
	return nil
}

// EnsureAdmin seeds the bootstrap admin account at startup. The seeded
// account must change its password on first sign-in.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	canonical := model.CanonicalUsername(username)
	if _, err := s.users.GetByUsername(ctx, canonical); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	admin := &model.User{
		Username:           canonical,
		FullName:           "Administrator",
		PasswordHash:       hash,
		Role:               model.RoleAdmin,
		PasswordLastSet:    &now,
		MustChangePassword: true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	s.log.Info("bootstrap admin account created", "username", canonical)
	return nil
}

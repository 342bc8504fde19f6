package auth

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

const defaultChallengeTTL = 5 * time.Minute

// SessionIssuer establishes a session for a fully authenticated user and
// returns the signed token. timeout is the policy's sliding expiry; zero
// means no sliding expiry, only the transport-level default lifetime.
type SessionIssuer interface {
	Issue(ctx context.Context, user *model.User, timeout time.Duration) (string, error)
}

// Service is the authentication state machine every login passes through:
// credential check, lockout, password expiry, optional second factor,
// session issuance.
type Service struct {
	users        repository.UserRepository
	challenges   repository.ChallengeStore
	policySvc    *policy.Service
	auditor      *audit.Service
	hasher       security.PasswordHasher
	sessions     SessionIssuer
	emailSvc     email.Service
	metrics      *metrics.Metrics
	log          *logger.Logger
	challengeTTL time.Duration

	// now is swapped in tests to drive lockout windows.
	now func() time.Time
}

func NewService(
	users repository.UserRepository,
	challenges repository.ChallengeStore,
	policySvc *policy.Service,
	auditor *audit.Service,
	hasher security.PasswordHasher,
	sessions SessionIssuer,
	emailSvc email.Service,
	m *metrics.Metrics,
	log *logger.Logger,
	challengeTTL time.Duration,
) *Service {
	if challengeTTL <= 0 {
		challengeTTL = defaultChallengeTTL
	}
	return &Service{
		users:        users,
		challenges:   challenges,
		policySvc:    policySvc,
		auditor:      auditor,
		hasher:       hasher,
		sessions:     sessions,
		emailSvc:     emailSvc,
		metrics:      m,
		log:          log,
		challengeTTL: challengeTTL,
		now:          time.Now,
	}
}

// Authenticate runs the full login gate order. It returns either an
// established session, an OTP challenge for accounts with the second factor
// enabled, or a rejection from one of the gates.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*model.LoginOutcome, error) {
	now := s.now()

	p, err := s.policySvc.Get(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Unknown user and blocked user read identically to the caller.
			s.auditor.Append(ctx, model.CanonicalUsername(username), model.AuditActionFailedLogin,
				"failed login attempt for unknown username")
			s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return nil, apperror.InvalidCredentials()
		}
		return nil, apperror.Internal(err)
	}

	if user.Blocked {
		s.auditor.Append(ctx, user.Username, model.AuditActionFailedLogin,
			"failed login attempt for blocked account")
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, apperror.InvalidCredentials()
	}

	if user.IsLocked(now) {
		remaining := user.LockedUntil.Sub(now)
		s.auditor.Append(ctx, user.Username, model.AuditActionFailedLogin,
			"login attempt while account locked")
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeLocked).Inc()
		return nil, apperror.AccountLocked(remaining)
	}

	// An elapsed lockout window counts as a clean slate.
	if user.LockedUntil != nil {
		clearLockout(user)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.rejectWrongPassword(ctx, user, p, now)
	}

	// Correct password: reset counters and evaluate password expiry before
	// anything else is decided.
	markSuccessfulLogin(user, p, now)

	if err := s.users.Update(ctx, user); err != nil {
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, apperror.Internal(fmt.Errorf("failed to persist login state: %w", err))
		}
		// A concurrent writer touched this account between our read and
		// write; its counters are authoritative. Re-read and re-apply once.
		s.log.Debug("login state update lost race, retrying", "username", user.Username)
		fresh, rerr := s.users.GetByUsername(ctx, user.Username)
		if rerr != nil {
			return nil, apperror.Internal(fmt.Errorf("failed to persist login state: %w", rerr))
		}
		markSuccessfulLogin(fresh, p, now)
		if uerr := s.users.Update(ctx, fresh); uerr != nil && !errors.Is(uerr, repository.ErrVersionConflict) {
			return nil, apperror.Internal(fmt.Errorf("failed to persist login state: %w", uerr))
		}
		user = fresh
	}

	if user.OTPEnabled {
		challenge := NewChallenge(user.Username)
		if err := s.challenges.Put(ctx, challenge, s.challengeTTL); err != nil {
			return nil, apperror.Internal(fmt.Errorf("failed to store challenge: %w", err))
		}
		s.auditor.Append(ctx, user.Username, model.AuditActionLogin,
			"stage 1/2: password accepted, one-time password challenge issued")
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeOTPRequired).Inc()
		s.metrics.OTPChallenges.WithLabelValues("issued").Inc()
		return &model.LoginOutcome{
			OTPRequired: true,
			Challenge:   challenge,
		}, nil
	}

	return s.establishSession(ctx, user, p, model.AuditActionLogin, "signed in")
}

// CompleteOTP verifies the answer to a previously issued challenge. The
// challenge is consumed no matter the result; a wrong answer sends the user
// back to the login form rather than allowing a retry in place.
func (s *Service) CompleteOTP(ctx context.Context, challengeID uuid.UUID, answer string) (*model.LoginOutcome, error) {
	challenge, err := s.challenges.Take(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ChallengeIntegrity("challenge expired or already used, sign in again")
		}
		return nil, apperror.Internal(err)
	}

	if challenge.A == 0 || challenge.X == 0 {
		s.auditor.Append(ctx, challenge.Username, model.AuditActionLoginOTP,
			"stage 2/2: degenerate challenge context rejected")
		return nil, apperror.ChallengeIntegrity("invalid challenge context, sign in again")
	}

	user, err := s.users.GetByUsername(ctx, challenge.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, apperror.Internal(err)
	}
	if user.Blocked || !user.OTPEnabled {
		s.auditor.Append(ctx, user.Username, model.AuditActionFailedLogin,
			"stage 2/2: account no longer eligible for sign-in")
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, apperror.InvalidCredentials()
	}

	p, err := s.policySvc.Get(ctx)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	if !VerifyAnswer(answer, challenge.A, challenge.X) {
		s.auditor.Append(ctx, user.Username, model.AuditActionLoginOTP,
			"stage 2/2: failed login attempt (incorrect one-time password)")
		s.metrics.OTPChallenges.WithLabelValues("failed").Inc()
		return nil, apperror.InvalidCredentials()
	}

	s.metrics.OTPChallenges.WithLabelValues("verified").Inc()
	return s.establishSession(ctx, user, p, model.AuditActionLoginOTP,
		"stage 2/2: one-time password correct, signed in")
}

func (s *Service) rejectWrongPassword(ctx context.Context, user *model.User, p *model.PasswordPolicy, now time.Time) error {
	locked, remaining := applyFailedAttempt(user, p, now)

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			// A concurrent attempt already recorded a failure for this
			// account; the rejection below still stands.
			s.log.Debug("lockout counter update lost race", "username", user.Username)
		} else {
			s.log.Error(err, "failed to persist lockout state", "username", user.Username)
		}
	}

	if locked {
		s.auditor.Append(ctx, user.Username, model.AuditActionLockout,
			fmt.Sprintf("account locked for %d minutes after too many failed attempts", p.LockoutDurationMinutes))
		s.metrics.Lockouts.Inc()
		s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeLocked).Inc()
		if err := s.emailSvc.NotifyLockout(ctx, user, *user.LockedUntil); err != nil {
			s.log.Error(err, "lockout notification failed", "username", user.Username)
		}
		return apperror.AccountLocked(p.LockoutDuration())
	}

	s.auditor.Append(ctx, user.Username, model.AuditActionFailedLogin,
		"failed login attempt (incorrect password)")
	s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()

	if p.LockoutEnabled() {
		return apperror.InvalidCredentialsRemaining(remaining)
	}
	return apperror.InvalidCredentials()
}

func (s *Service) establishSession(ctx context.Context, user *model.User, p *model.PasswordPolicy, action, description string) (*model.LoginOutcome, error) {
	token, err := s.sessions.Issue(ctx, user, p.SessionTimeout())
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("failed to establish session: %w", err))
	}

	s.auditor.Append(ctx, user.Username, action, description)
	s.metrics.LoginAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()

	return &model.LoginOutcome{
		Token:              token,
		MustChangePassword: user.MustChangePassword,
		User:               user,
	}, nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/mzalewski/secadmin-api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when an optimistic-concurrency update loses
// the race: the row's version moved since it was read.
var ErrVersionConflict = errors.New("version conflict")

// All repository interfaces in one file
type (
	// UserRepository handles account persistence. Update applies a
	// compare-and-swap on the account's version field and returns
	// ErrVersionConflict when a concurrent writer got there first.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.User, error)
	}

	// PolicyRepository handles the password policy singleton. Load returns
	// ErrNotFound when no row has been saved yet.
	PolicyRepository interface {
		Load(ctx context.Context) (*model.PasswordPolicy, error)
		Save(ctx context.Context, policy *model.PasswordPolicy) error
	}

	// AuditRepository handles the append-only audit log.
	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLog) error
		List(ctx context.Context, filter *model.AuditLogFilter) ([]*model.AuditLog, int64, error)
		DistinctActions(ctx context.Context) ([]string, error)
	}

	// SessionStore tracks live sessions. Touch refreshes the sliding expiry
	// and reports whether the session still exists.
	SessionStore interface {
		Create(ctx context.Context, sessionID uuid.UUID, username string, ttl time.Duration) error
		Touch(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) (bool, error)
		Delete(ctx context.Context, sessionID uuid.UUID) error
	}

	// ChallengeStore holds pending OTP challenges. Take consumes the
	// challenge atomically; a second Take for the same ID returns
	// ErrNotFound. This is what makes a challenge single-use.
	ChallengeStore interface {
		Put(ctx context.Context, challenge *model.OTPChallenge, ttl time.Duration) error
		Take(ctx context.Context, id uuid.UUID) (*model.OTPChallenge, error)
	}
)

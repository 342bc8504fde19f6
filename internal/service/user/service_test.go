package user

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
	"github.com/mzalewski/secadmin-api/internal/service/audit"
	"github.com/mzalewski/secadmin-api/internal/service/policy"
	"github.com/mzalewski/secadmin-api/pkg/apperror"
	"github.com/mzalewski/secadmin-api/pkg/logger"
	"github.com/mzalewski/secadmin-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("usersvctest")

var testLogger = logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

type fakeUserRepo struct {
	users map[string]*model.User

	// conflicts makes the next n Update calls lose the version race.
	conflicts int
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users[u.Username] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	cp := *u
	r.users[u.Username] = &cp
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[model.CanonicalUsername(username)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.Username]; !ok {
		return repository.ErrNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		return repository.ErrVersionConflict
	}
	cp := *u
	r.users[u.Username] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	for name, u := range r.users {
		if u.ID == id {
			delete(r.users, name)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type fakePolicyRepo struct {
	policy *model.PasswordPolicy
}

func (r *fakePolicyRepo) Load(_ context.Context) (*model.PasswordPolicy, error) {
	if r.policy == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r.policy
	return &cp, nil
}

func (r *fakePolicyRepo) Save(_ context.Context, p *model.PasswordPolicy) error {
	cp := *p
	r.policy = &cp
	return nil
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(context.Context, *model.AuditLog) error { return nil }
func (fakeAuditRepo) List(context.Context, *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	return nil, 0, nil
}
func (fakeAuditRepo) DistinctActions(context.Context) ([]string, error) { return nil, nil }

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "h:" + password, nil }
func (plainHasher) Verify(password, hash string) bool    { return hash == "h:"+password }

type fakeEmail struct {
	forcedChanges int
}

func (e *fakeEmail) NotifyLockout(context.Context, *model.User, time.Time) error { return nil }
func (e *fakeEmail) NotifyForcedPasswordChange(context.Context, *model.User) error {
	e.forcedChanges++
	return nil
}

type userFixture struct {
	svc   *Service
	users *fakeUserRepo
	email *fakeEmail
}

func newUserFixture(t *testing.T, p *model.PasswordPolicy, users ...*model.User) *userFixture {
	t.Helper()

	f := &userFixture{
		users: newFakeUserRepo(users...),
		email: &fakeEmail{},
	}
	policySvc := policy.NewService(&fakePolicyRepo{policy: p})
	auditSvc := audit.NewService(fakeAuditRepo{}, policySvc, testLogger, testMetrics)

	f.svc = NewService(f.users, policySvc, auditSvc, plainHasher{}, f.email, testMetrics, testLogger, "master-key")
	return f
}

func testUser(username, password string) *model.User {
	return &model.User{
		ID:           uuid.New(),
		Username:     username,
		FullName:     "Test User",
		PasswordHash: "h:" + password,
		Role:         model.RoleUser,
	}
}

func strictPolicy() *model.PasswordPolicy {
	p := model.DefaultPasswordPolicy()
	p.Enabled = true
	p.RequireDigit = true
	return p
}

func TestChangePassword(t *testing.T) {
	u := testUser("alice", "oldpass1")
	u.MustChangePassword = true
	f := newUserFixture(t, strictPolicy(), u)

	err := f.svc.ChangePassword(context.Background(), "alice", "oldpass1", "newpass2")
	require.NoError(t, err)

	stored, _ := f.users.GetByUsername(context.Background(), "alice")
	assert.Equal(t, "h:newpass2", stored.PasswordHash)
	assert.False(t, stored.MustChangePassword)
	assert.NotNil(t, stored.PasswordLastSet)
	assert.Contains(t, []string(stored.PasswordHistory), "h:oldpass1")
}

func TestChangePasswordSurvivesCounterRace(t *testing.T) {
	u := testUser("alice", "oldpass1")
	u.FailedLoginAttempts = 1
	f := newUserFixture(t, strictPolicy(), u)
	ctx := context.Background()

	// A concurrent login attempt wins the first write; the rotated hash is
	// re-applied on a fresh read and the change still lands.
	f.users.conflicts = 1
	require.NoError(t, f.svc.ChangePassword(ctx, "alice", "oldpass1", "newpass2"))

	stored, _ := f.users.GetByUsername(ctx, "alice")
	assert.Equal(t, "h:newpass2", stored.PasswordHash)
	assert.False(t, stored.MustChangePassword)
	assert.Contains(t, []string(stored.PasswordHistory), "h:oldpass1")
	// The concurrent writer's counter is not clobbered.
	assert.Equal(t, 1, stored.FailedLoginAttempts)
}

func TestChangePasswordWrongOldPassword(t *testing.T) {
	f := newUserFixture(t, strictPolicy(), testUser("alice", "oldpass1"))

	err := f.svc.ChangePassword(context.Background(), "alice", "nope", "newpass2")
	assert.True(t, apperror.Is(err, apperror.ErrPolicyViolation))

	stored, _ := f.users.GetByUsername(context.Background(), "alice")
	assert.Equal(t, "h:oldpass1", stored.PasswordHash)
}

func TestChangePasswordPolicyViolation(t *testing.T) {
	f := newUserFixture(t, strictPolicy(), testUser("alice", "oldpass1"))

	// No digit.
	err := f.svc.ChangePassword(context.Background(), "alice", "oldpass1", "newpassword")
	assert.True(t, apperror.Is(err, apperror.ErrPolicyViolation))
}

func TestChangePasswordHistoryReuse(t *testing.T) {
	u := testUser("alice", "current1")
	u.PasswordHistory = []string{"h:older1", "h:older2"}
	f := newUserFixture(t, strictPolicy(), u)
	ctx := context.Background()

	// Current and any of the kept hashes are rejected.
	err := f.svc.ChangePassword(ctx, "alice", "current1", "current1")
	assert.True(t, apperror.Is(err, apperror.ErrPolicyViolation))

	err = f.svc.ChangePassword(ctx, "alice", "current1", "older2")
	assert.True(t, apperror.Is(err, apperror.ErrPolicyViolation))

	err = f.svc.ChangePassword(ctx, "alice", "current1", "fresh123")
	require.NoError(t, err)
}

func TestChangePasswordHistoryEviction(t *testing.T) {
	u := testUser("alice", "pass0")
	f := newUserFixture(t, model.DefaultPasswordPolicy(), u)
	ctx := context.Background()

	// Six successive changes; the first password falls out of the window.
	passwords := []string{"pass1", "pass2", "pass3", "pass4", "pass5", "pass6"}
	prev := "pass0"
	for _, pw := range passwords {
		require.NoError(t, f.svc.ChangePassword(ctx, "alice", prev, pw))
		prev = pw
	}

	stored, _ := f.users.GetByUsername(ctx, "alice")
	assert.Len(t, []string(stored.PasswordHistory), model.PasswordHistoryLimit)
	assert.NotContains(t, []string(stored.PasswordHistory), "h:pass0")

	// The evicted password is usable again; a kept one is not.
	err := f.svc.ChangePassword(ctx, "alice", "pass6", "pass2")
	assert.True(t, apperror.Is(err, apperror.ErrPolicyViolation))

	require.NoError(t, f.svc.ChangePassword(ctx, "alice", "pass6", "pass0"))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newUserFixture(t, model.DefaultPasswordPolicy(), testUser("alice", "secret"))

	_, err := f.svc.Register(context.Background(), &model.RegisterRequest{
		Username: "ALICE",
		FullName: "Another Alice",
		Password: "whatever1",
	})
	assert.True(t, apperror.Is(err, apperror.ErrConflict))
}

func TestRegisterAlwaysUserRole(t *testing.T) {
	f := newUserFixture(t, model.DefaultPasswordPolicy())

	u, err := f.svc.Register(context.Background(), &model.RegisterRequest{
		Username: "Bob",
		FullName: "Bob B",
		Password: "whatever1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, u.Role)
	assert.Equal(t, "bob", u.Username)
}

func TestAdminSetPasswordKeepsForcedFlag(t *testing.T) {
	u := testUser("alice", "oldpass1")
	u.MustChangePassword = true
	f := newUserFixture(t, model.DefaultPasswordPolicy(), u)

	newPw := "adminset1"
	updated, err := f.svc.Update(context.Background(), "root", u.ID, &model.UpdateUserRequest{
		NewPassword: &newPw,
	})
	require.NoError(t, err)
	assert.Equal(t, "h:adminset1", updated.PasswordHash)
	assert.True(t, updated.MustChangePassword)
	assert.Contains(t, []string(updated.PasswordHistory), "h:oldpass1")
}

func TestForcePasswordChange(t *testing.T) {
	u := testUser("alice", "secret")
	f := newUserFixture(t, model.DefaultPasswordPolicy(), u)

	require.NoError(t, f.svc.ForcePasswordChange(context.Background(), "root", u.ID))

	stored, _ := f.users.GetByUsername(context.Background(), "alice")
	assert.True(t, stored.MustChangePassword)
	assert.Equal(t, 1, f.email.forcedChanges)
}

func TestBlockUnblock(t *testing.T) {
	u := testUser("alice", "secret")
	f := newUserFixture(t, model.DefaultPasswordPolicy(), u)
	ctx := context.Background()

	require.NoError(t, f.svc.SetBlocked(ctx, "root", u.ID, true))
	stored, _ := f.users.GetByUsername(ctx, "alice")
	assert.True(t, stored.Blocked)

	require.NoError(t, f.svc.SetBlocked(ctx, "root", u.ID, false))
	stored, _ = f.users.GetByUsername(ctx, "alice")
	assert.False(t, stored.Blocked)
}

func TestUnlockContent(t *testing.T) {
	u := testUser("alice", "secret")
	f := newUserFixture(t, model.DefaultPasswordPolicy(), u)
	ctx := context.Background()

	err := f.svc.UnlockContent(ctx, "alice", "wrong-key")
	assert.True(t, apperror.Is(err, apperror.ErrForbidden))

	require.NoError(t, f.svc.UnlockContent(ctx, "alice", "master-key"))
	stored, _ := f.users.GetByUsername(ctx, "alice")
	assert.True(t, stored.ContentUnlocked)
}

func TestEnsureAdmin(t *testing.T) {
	f := newUserFixture(t, model.DefaultPasswordPolicy())
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureAdmin(ctx, "Admin", "bootstrap1"))

	stored, err := f.users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, stored.Role)
	assert.True(t, stored.MustChangePassword)

	// Idempotent on restart.
	require.NoError(t, f.svc.EnsureAdmin(ctx, "Admin", "different"))
	stored, _ = f.users.GetByUsername(ctx, "admin")
	assert.Equal(t, "h:bootstrap1", stored.PasswordHash)
}

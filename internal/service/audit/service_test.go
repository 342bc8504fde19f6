package audit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
	"github.com/mzalewski/secadmin-api/internal/service/policy"
	"github.com/mzalewski/secadmin-api/pkg/logger"
	"github.com/mzalewski/secadmin-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("auditsvctest")

var testLogger = logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

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

type fakeAuditRepo struct {
	entries   []*model.AuditLog
	createErr error
}

func (r *fakeAuditRepo) Create(_ context.Context, e *model.AuditLog) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _ *model.AuditLogFilter) ([]*model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) DistinctActions(_ context.Context) ([]string, error) {
	return []string{model.AuditActionLogin}, nil
}

func newAuditFixture(p *model.PasswordPolicy) (*Service, *fakeAuditRepo) {
	repo := &fakeAuditRepo{}
	svc := NewService(repo, policy.NewService(&fakePolicyRepo{policy: p}), testLogger, testMetrics)
	return svc, repo
}

func TestAppendRecordsEntry(t *testing.T) {
	svc, repo := newAuditFixture(model.DefaultPasswordPolicy())

	svc.Append(context.Background(), "alice", model.AuditActionLogin, "signed in")

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, "alice", entry.Username)
	assert.Equal(t, model.AuditActionLogin, entry.Action)
	assert.Equal(t, "signed in", entry.Description)
}

func TestAppendGatedByPolicy(t *testing.T) {
	p := model.DefaultPasswordPolicy()
	p.EnableAuditLog = false
	svc, repo := newAuditFixture(p)

	svc.Append(context.Background(), "alice", model.AuditActionLogin, "signed in")
	assert.Empty(t, repo.entries)
}

func TestAppendSwallowsStoreFailure(t *testing.T) {
	svc, repo := newAuditFixture(model.DefaultPasswordPolicy())
	repo.createErr = errors.New("disk full")

	// Append never propagates failures to the caller.
	svc.Append(context.Background(), "alice", model.AuditActionLogin, "signed in")
	assert.Empty(t, repo.entries)
}

package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/pkg/apperror"
)

type fakeSessionStore struct {
	sessions    map[uuid.UUID]string
	lastTTL     time.Duration
	lastTouched time.Duration
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]string)}
}

func (s *fakeSessionStore) Create(_ context.Context, sid uuid.UUID, username string, ttl time.Duration) error {
	s.sessions[sid] = username
	s.lastTTL = ttl
	return nil
}

func (s *fakeSessionStore) Touch(_ context.Context, sid uuid.UUID, ttl time.Duration) (bool, error) {
	s.lastTouched = ttl
	_, ok := s.sessions[sid]
	return ok, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, sid uuid.UUID) error {
	delete(s.sessions, sid)
	return nil
}

func testUser() *model.User {
	return &model.User{ID: uuid.New(), Username: "alice", Role: model.RoleUser}
}

func TestIssueAndValidate(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, "test-secret", time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, testUser(), 10*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, 10*time.Minute, store.lastTTL)

	claims, err := svc.Validate(ctx, token, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Len(t, store.sessions, 1)

	// Every validation refreshes the sliding window.
	assert.Equal(t, 10*time.Minute, store.lastTouched)
}

func TestIssueWithoutTimeoutUsesDefaultTTL(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, "test-secret", 2*time.Hour)

	_, err := svc.Issue(context.Background(), testUser(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, store.lastTTL)
}

func TestValidateExpiredSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, "test-secret", time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, testUser(), 10*time.Minute)
	require.NoError(t, err)

	// The store record expiring out from under the token ends the session.
	for sid := range store.sessions {
		delete(store.sessions, sid)
	}

	_, err = svc.Validate(ctx, token, 10*time.Minute)
	assert.True(t, apperror.Is(err, apperror.ErrSessionExpired))
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, "test-secret", time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, testUser(), 10*time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(ctx, token+"x", 10*time.Minute)
	assert.True(t, apperror.Is(err, apperror.ErrUnauthorized))

	_, err = svc.Validate(ctx, "not-a-token", 10*time.Minute)
	assert.True(t, apperror.Is(err, apperror.ErrUnauthorized))
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	store := newFakeSessionStore()
	issuer := NewService(store, "secret-a", time.Hour)
	validator := NewService(store, "secret-b", time.Hour)
	ctx := context.Background()

	token, err := issuer.Issue(ctx, testUser(), 10*time.Minute)
	require.NoError(t, err)

	_, err = validator.Validate(ctx, token, 10*time.Minute)
	assert.True(t, apperror.Is(err, apperror.ErrUnauthorized))
}

func TestDestroyEndsSession(t *testing.T) {
	store := newFakeSessionStore()
	svc := NewService(store, "test-secret", time.Hour)
	ctx := context.Background()

	token, err := svc.Issue(ctx, testUser(), 10*time.Minute)
	require.NoError(t, err)

	claims, err := svc.Validate(ctx, token, 10*time.Minute)
	require.NoError(t, err)

	require.NoError(t, svc.Destroy(ctx, claims.SessionID))

	_, err = svc.Validate(ctx, token, 10*time.Minute)
	assert.True(t, apperror.Is(err, apperror.ErrSessionExpired))
}

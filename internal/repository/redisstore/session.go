package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mzalewski/secadmin-api/internal/repository"
)

const sessionKeyPrefix = "session:"

type sessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) repository.SessionStore {
	return &sessionStore{client: client}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func (s *sessionStore) Create(ctx context.Context, sessionID uuid.UUID, username string, ttl time.Duration) error {
	if err := s.client.Set(ctx, sessionKey(sessionID), username, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Touch refreshes the sliding expiry. A zero ttl only checks existence
// without changing the remaining lifetime.
func (s *sessionStore) Touch(ctx context.Context, sessionID uuid.UUID, ttl time.Duration) (bool, error) {
	key := sessionKey(sessionID)

	if ttl <= 0 {
		n, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check session: %w", err)
		}
		return n > 0, nil
	}

	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to refresh session: %w", err)
	}
	return ok, nil
}

func (s *sessionStore) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

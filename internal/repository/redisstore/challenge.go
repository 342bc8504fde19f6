package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
)

const challengeKeyPrefix = "otp-challenge:"

type challengeStore struct {
	client *redis.Client
}

func NewChallengeStore(client *redis.Client) repository.ChallengeStore {
	return &challengeStore{client: client}
}

func challengeKey(id uuid.UUID) string {
	return challengeKeyPrefix + id.String()
}

func (s *challengeStore) Put(ctx context.Context, challenge *model.OTPChallenge, ttl time.Duration) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}
	if err := s.client.Set(ctx, challengeKey(challenge.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	return nil
}

// Take consumes the challenge. GETDEL makes it single-use: concurrent
// verification attempts for the same challenge see it exactly once.
func (s *challengeStore) Take(ctx context.Context, id uuid.UUID) (*model.OTPChallenge, error) {
	data, err := s.client.GetDel(ctx, challengeKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to take challenge: %w", err)
	}

	var challenge model.OTPChallenge
	if err := json.Unmarshal([]byte(data), &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}
	return &challenge, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mzalewski/secadmin-api/internal/model"
	"github.com/mzalewski/secadmin-api/internal/repository"
	"github.com/mzalewski/secadmin-api/pkg/apperror"
)

// Service issues and validates session tokens. The token is a signed JWT
// carrying the session's only two identity claims, username and role, plus a
// session ID. Liveness is tracked server-side in the session store so that
// the policy's sliding timeout and explicit logout both take effect
// immediately, regardless of what the token says.
type Service struct {
	store      repository.SessionStore
	secret     []byte
	defaultTTL time.Duration
}

type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func NewService(store repository.SessionStore, secret string, defaultTTL time.Duration) *Service {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &Service{
		store:      store,
		secret:     []byte(secret),
		defaultTTL: defaultTTL,
	}
}

// Issue establishes a session. timeout > 0 installs the policy's sliding
// expiry; otherwise only the transport-level default lifetime bounds the
// session.
func (s *Service) Issue(ctx context.Context, user *model.User, timeout time.Duration) (string, error) {
	sid := uuid.New()

	ttl := timeout
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.store.Create(ctx, sid, user.Username, ttl); err != nil {
		return "", err
	}

	claims := tokenClaims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       sid.String(),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// Validate checks the token signature and the server-side session record,
// refreshing the sliding expiry when the policy has one. A session whose
// record is gone is expired: the caller owns the audit entry and the user-
// facing notice.
func (s *Service) Validate(ctx context.Context, tokenString string, timeout time.Duration) (*model.SessionClaims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.Unauthorized(err)
	}

	if claims.Username == "" || claims.Role == "" {
		return nil, apperror.Unauthorized(errors.New("session carries no identity"))
	}

	sid, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, apperror.Unauthorized(fmt.Errorf("malformed session id: %w", err))
	}

	alive, err := s.store.Touch(ctx, sid, timeout)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if !alive {
		return nil, apperror.SessionExpired()
	}

	return &model.SessionClaims{
		SessionID: sid,
		Username:  claims.Username,
		Role:      claims.Role,
	}, nil
}

// Destroy terminates a session immediately.
func (s *Service) Destroy(ctx context.Context, sessionID uuid.UUID) error {
	return s.store.Delete(ctx, sessionID)
}

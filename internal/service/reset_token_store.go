package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrTokenInvalid means the reset token is unknown, expired or already used.
var ErrTokenInvalid = errors.New("reset token invalid or expired")

// ResetTokenStore is a keyed store for single-use password reset tokens with
// expiry. Tokens live in Redis under a TTL, never in process memory, so any
// replica can issue or consume them.
type ResetTokenStore interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Consume(ctx context.Context, token string) (uint, error)
}

type resetTokenStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewResetTokenStore builds a Redis-backed reset token store.
func NewResetTokenStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) ResetTokenStore {
	return &resetTokenStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "reset_token_store").Logger(),
	}
}

func resetTokenKey(token string) string {
	return "reset_token:" + token
}

func (s *resetTokenStore) Issue(ctx context.Context, userID uint) (string, error) {
	token := uuid.NewString()

	if err := s.client.Set(ctx, resetTokenKey(token), strconv.FormatUint(uint64(userID), 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}

	s.logger.Info().Uint("user_id", userID).Msg("reset token issued")
	return token, nil
}

// Consume atomically fetches and deletes the token; a second consume of the
// same token fails.
func (s *resetTokenStore) Consume(ctx context.Context, token string) (uint, error) {
	value, err := s.client.GetDel(ctx, resetTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenInvalid
		}
		return 0, fmt.Errorf("failed to consume reset token: %w", err)
	}

	userID, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, ErrTokenInvalid
	}

	return uint(userID), nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	blacklistPrefix  = "blacklist:"
	resetTokenPrefix = "reset_token:"
)

// ErrTokenNotFound is returned for unknown, expired or already used tokens
var ErrTokenNotFound = errors.New("token not found")

// TokenRepository keeps short-lived tokens in Redis
type TokenRepository struct {
	rdb *redis.Client
}

func NewTokenRepository(rdb *redis.Client) *TokenRepository {
	return &TokenRepository{rdb: rdb}
}

// Blacklist revokes a JWT until it would have expired anyway
func (r *TokenRepository) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, blacklistPrefix+token, "revoked", ttl).Err()
}

// IsBlacklisted reports whether a JWT was revoked
func (r *TokenRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveResetToken stores a one-time password reset token for a user
func (r *TokenRepository) SaveResetToken(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return r.rdb.Set(ctx, resetTokenPrefix+token, userID.String(), ttl).Err()
}

// ConsumeResetToken atomically reads and deletes a reset token
func (r *TokenRepository) ConsumeResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.rdb.GetDel(ctx, resetTokenPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrTokenNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrTokenNotFound
	}
	return id, nil
}

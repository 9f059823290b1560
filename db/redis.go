package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds the credential pair.
const DefaultRedisKey = "storekeeper:session"

// redisTokenRepo keeps the credential pair in a single Redis hash so that several terminals can
// share one session.
type redisTokenRepo struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisTokenRepository creates a Redis-backed TokenRepository.
func NewRedisTokenRepository(rdb redis.UniversalClient, key string) TokenRepository {
	if key == "" {
		key = DefaultRedisKey
	}
	return &redisTokenRepo{rdb: rdb, key: key}
}

func (r *redisTokenRepo) Get(ctx context.Context) (*Token, error) {
	if r.rdb == nil {
		return nil, errNotInitialized
	}
	fields, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &Token{
		ID:               singletonID,
		AccessToken:      fields["access_token"],
		RefreshToken:     fields["refresh_token"],
		AccessExpiresAt:  parseUnix(fields["access_expires_at"]),
		RefreshExpiresAt: parseUnix(fields["refresh_expires_at"]),
	}, nil
}

// Upsert writes both tokens in one MULTI/EXEC transaction.
func (r *redisTokenRepo) Upsert(ctx context.Context, token *Token) error {
	if r.rdb == nil {
		return errNotInitialized
	}
	token.ID = singletonID
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key,
			"access_token", token.AccessToken,
			"refresh_token", token.RefreshToken,
			"access_expires_at", formatUnix(token.AccessExpiresAt),
			"refresh_expires_at", formatUnix(token.RefreshExpiresAt),
		)
		if !token.RefreshExpiresAt.IsZero() {
			pipe.ExpireAt(ctx, r.key, token.RefreshExpiresAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session hash: %w", err)
	}
	return nil
}

func (r *redisTokenRepo) Delete(ctx context.Context) error {
	if r.rdb == nil {
		return errNotInitialized
	}
	return r.rdb.Del(ctx, r.key).Err()
}

func formatUnix(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func parseUnix(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

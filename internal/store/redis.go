package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayush/videotube/backend/internal/models"
)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// AccountCache keeps sanitized accounts keyed by id so token verification
// can skip the database on hot paths. Entries expire after ttl and are
// invalidated on every profile mutation.
type AccountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAccountCache(rdb *redis.Client, ttl time.Duration) *AccountCache {
	return &AccountCache{rdb: rdb, ttl: ttl}
}

func accountKey(id string) string { return "account:" + id }

// Get returns the cached account, or nil on a miss.
func (c *AccountCache) Get(ctx context.Context, id string) (*models.Account, error) {
	raw, err := c.rdb.Get(ctx, accountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var acct models.Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("redis decode: %w", err)
	}
	return &acct, nil
}

// Set stores the sanitized form of acct.
func (c *AccountCache) Set(ctx context.Context, acct *models.Account) error {
	raw, err := json.Marshal(acct.Sanitized())
	if err != nil {
		return fmt.Errorf("redis encode: %w", err)
	}
	return c.rdb.Set(ctx, accountKey(acct.ID.Hex()), raw, c.ttl).Err()
}

// Invalidate drops the cached entry for id.
func (c *AccountCache) Invalidate(ctx context.Context, id string) error {
	return c.rdb.Del(ctx, accountKey(id)).Err()
}

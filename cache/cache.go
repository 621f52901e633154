// Package cache implements the read-through cache layer and the fast
// play counter on top of Redis. Cache entries are JSON encoded and keyed
// by entity type plus id. Mutations to the underlying records must call
// the matching Invalidate before returning.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 缓存键前缀，与过期时间一一对应
const (
	trackDetailKeyPrefix = "music:info:"
	userProfileKeyPrefix = "user:info:"
	playCountKeyPrefix   = "music:play:count:"

	// TrackDetailTTL bounds staleness of moderation edits on cached details.
	TrackDetailTTL = 60 * time.Minute
	// UserProfileTTL bounds staleness of profile edits.
	UserProfileTTL = 30 * time.Minute
	// playCountExpiry gives the reconciliation job a full day to drain a counter.
	playCountExpiry = 24 * time.Hour
)

// Cache is a key-value cache with TTL. A Get miss returns (false, nil);
// transport errors are returned so callers can decide whether the miss is
// tolerable (reads) or must be reported (invalidation).
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type redisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps a Redis client as a Cache.
func NewRedisCache(rdb *redis.Client) Cache {
	return &redisCache{rdb: rdb}
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// 缓存内容损坏按未命中处理，同时删掉脏数据
		c.rdb.Del(ctx, key)
		return false, fmt.Errorf("failed to unmarshal cache key %s: %w", key, err)
	}
	return true, nil
}

func (c *redisCache) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache key %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache key %s: %w", key, err)
	}
	return nil
}

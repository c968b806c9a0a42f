package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/bookaudit/review"
)

// StatusCache keeps chunk review statuses in Redis so repeated runs skip
// completed chunks without a MongoDB round trip. Entries expire after the
// configured TTL; a miss is not an error.
type StatusCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewStatusCache creates a Redis-backed status cache.
func NewStatusCache(cfg RedisConfig) (*StatusCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &StatusCache{
		client: client,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}, nil
}

// Ping checks that the Redis connection is alive.
func (c *StatusCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *StatusCache) Close() error {
	return c.client.Close()
}

// Get returns the cached status for a chunk. The second return value is
// false on a cache miss.
func (c *StatusCache) Get(ctx context.Context, chunkID string) (review.Status, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+chunkID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read status cache: %w", err)
	}
	return review.Status(val), true, nil
}

// Set caches the status for a chunk with the configured TTL.
func (c *StatusCache) Set(ctx context.Context, chunkID string, status review.Status) error {
	if err := c.client.Set(ctx, c.prefix+chunkID, string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("write status cache: %w", err)
	}
	return nil
}

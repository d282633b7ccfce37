// Package cache is a thin Redis layer for hot read paths. It is
// optional: a nil *Cache is safe to call and behaves as a permanent
// miss, so the rest of the stack never branches on whether Redis is
// configured.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Cache wraps a Redis client with the key conventions used by the
// usage and subscription read paths.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Cache over an existing Redis client.
func New(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// UsageKey names the cached monthly video count for a user and month.
func UsageKey(userID string, year int, month time.Month) string {
	return fmt.Sprintf("usage:videos:%s:%04d-%02d", userID, year, int(month))
}

// SubscriptionKey names the cached tier for a user.
func SubscriptionKey(userID string) string {
	return "subscription:tier:" + userID
}

// GetCount reads a cached integer counter.
func (c *Cache) GetCount(ctx context.Context, key string) (int, error) {
	if c == nil || c.client == nil {
		return 0, ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, fmt.Errorf("cache get %s: %w", key, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("cache value for %s is not a counter: %w", key, err)
	}
	return n, nil
}

// SetCount stores an integer counter with the default TTL.
func (c *Cache) SetCount(ctx context.Context, key string, n int) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, strconv.Itoa(n), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetString reads a cached string value.
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return raw, nil
}

// SetString stores a string value with the default TTL.
func (c *Cache) SetString(ctx context.Context, key, value string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Invalidate removes keys, ignoring ones that do not exist.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuoteCache stores encoded quotes for a short time. Get reports a miss with ok=false.
type QuoteCache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisQuoteCache is a QuoteCache backed by Redis.
type RedisQuoteCache struct {
	client *redis.Client
}

// NewRedisQuoteCache wraps an existing Redis client.
func NewRedisQuoteCache(client *redis.Client) *RedisQuoteCache {
	return &RedisQuoteCache{client: client}
}

// Get implements QuoteCache.
func (c *RedisQuoteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set implements QuoteCache.
func (c *RedisQuoteCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

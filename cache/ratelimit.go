package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window request counter kept in Redis.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit hits per window for every key. A limit of 0 or less disables it.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// windowKey builds the Redis key for one client in the window containing now.
// A non-positive window collapses to a single bucket.
func (r *RateLimiter) windowKey(key string, now time.Time) string {
	var bucket int64
	if r.window > 0 {
		bucket = now.UnixNano() / int64(r.window)
	}
	return fmt.Sprintf("ratelimit:%s:%s:%d", r.prefix, key, bucket)
}

// Allow records one hit for key and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r == nil || r.limit <= 0 || r.window <= 0 {
		return true, nil
	}

	redisKey := r.windowKey(key, time.Now())
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to count request for %s: %w", key, err)
	}
	return incr.Val() <= int64(r.limit), nil
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLimiterUnavailable wraps Redis failures of the shared limiter.
var ErrLimiterUnavailable = errors.New("rate limiter unavailable")

// RedisRateLimiter is a fixed-window limiter shared by every API instance. Each key is an
// INCR counter whose expiry is set by the first hit of the window.
type RedisRateLimiter struct {
	redis   redis.UniversalClient
	prefix  string
	window  time.Duration
	maxReqs int
}

// NewRedisRateLimiter creates a Redis-backed limiter. maxReqs <= 0 disables limiting.
func NewRedisRateLimiter(client redis.UniversalClient, prefix string, window time.Duration, maxReqs int) *RedisRateLimiter {
	return &RedisRateLimiter{redis: client, prefix: prefix, window: window, maxReqs: maxReqs}
}

// Allow counts the request and reports whether it is within the window's budget.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.maxReqs <= 0 {
		return true, nil
	}

	count, err := l.incrementWithTTL(ctx, l.prefix+":"+key)
	if err != nil {
		return false, err
	}
	return count <= int64(l.maxReqs), nil
}

func (l *RedisRateLimiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}
	return count, nil
}

package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

type redisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	now    func() time.Time
}

// NewRedisRateLimiter returns a fixed window limiter shared by every process
// using the same redis. At most limit operations per key are allowed in each
// window.
func NewRedisRateLimiter(client *redis.Client, limit int64, window time.Duration) Limiter {
	return &redisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow implements limiter.Allow.
func (l *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowID := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("%s%s:%d", redisKeyPrefix, key, windowID)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, errors.Wrap(err, "error incrementing rate limit counter")
	}

	// First hit in the window owns the expiry
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window+time.Second).Err(); err != nil {
			return false, errors.Wrap(err, "error setting rate limit expiry")
		}
	}

	return count <= l.limit, nil
}

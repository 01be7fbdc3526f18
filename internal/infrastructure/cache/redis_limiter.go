package cache

import (
	"context"
	"log"
	"time"

	"vendomat/internal/usecase/interfaces"

	"github.com/redis/go-redis/v9"
)

const (
	limiterWindow = time.Minute
	limiterMax    = 10
)

// RedisRateLimiter is a fixed-window counter keyed per caller, used to slow
// down pickup-code guessing at the machine endpoint. Redis being down must
// never take ordering down with it, so the limiter fails open.

type RedisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int64
}

var _ interfaces.IRateLimiter = (*RedisRateLimiter)(nil)

func NewRedisRateLimiter(addr string) *RedisRateLimiter {
	client := redis.NewClient(&redis.Options{Addr: addr})
	log.Printf("[cache][limiter] redis limiter initialized addr=%s", addr)
	return &RedisRateLimiter{
		client: client,
		window: limiterWindow,
		max:    limiterMax,
	}
}

func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= l.max, nil
}

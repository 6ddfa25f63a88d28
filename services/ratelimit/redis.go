package ratelimit

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/gymhub/contentdesk/core"
)

const keyPrefix = "contentdesk:attempts:"

// redisLimiter is a fixed window limiter shared by every API instance: INCR the key, EXPIRE it on first hit.
type redisLimiter struct {
	rdb    *goredis.Client
	max    int
	window time.Duration
}

var _ core.AttemptLimiter = (*redisLimiter)(nil)

// NewRedisLimiter connects to conf.Redis.Addr.
func NewRedisLimiter(ctx context.Context, conf core.RedisConfig) (core.AttemptLimiter, func() error, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, core.NewUpstreamError("redis ping", err)
	}
	return &redisLimiter{rdb: rdb, max: conf.LoginAttempts, window: conf.LoginWindow}, rdb.Close, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = keyPrefix + key
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, core.NewUpstreamError("counting attempts", err)
	}
	if n == 1 {
		if err = l.rdb.Expire(ctx, key, l.window).Err(); err != nil {
			return false, core.NewUpstreamError("setting attempts window", err)
		}
	}
	return n <= int64(l.max), nil
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return core.NewUpstreamError("resetting attempts", err)
	}
	return nil
}

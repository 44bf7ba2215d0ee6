package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/logging"
	"github.com/opsportal/portal/src/oops"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

/*
A Limiter counts requests per key in fixed windows stored in Redis, so every
instance of the service shares the same counters. If Redis can't be reached the
request is allowed: a broken limiter should never take down attachment access.
*/
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(rdb *redis.Client, limit int, window time.Duration) *Limiter {
	if window < time.Second {
		window = time.Second
	}
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	bucketKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, bucketKey)
	pipe.Expire(ctx, bucketKey, l.window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.ExtractLogger(ctx).Warn().Err(err).Str("key", key).Msg("rate limit check failed, allowing request")
		return Result{Allowed: true, Remaining: l.limit}, oops.New(err, "rate limit check failed")
	}

	count := int(incr.Val())
	if count <= l.limit {
		return Result{Allowed: true, Remaining: l.limit - count}, nil
	}

	windowEnd := time.Unix(0, (bucket+1)*int64(l.window))
	return Result{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: windowEnd.Sub(now),
	}, nil
}

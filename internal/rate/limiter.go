package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result describe el estado del contador tras registrar un hit.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter cuenta requests por clave (normalmente IP) en ventana fija.
type Limiter interface {
	// Allow registra un hit para la clave y decide si pasa.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// RedisLimiter implementa ventana fija con INCR + EXPIRE. Es la opción
// correcta cuando hay más de una réplica del servicio.
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	n := incr.Val()
	if n > int64(limit) {
		ttl, err := l.rdb.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return Result{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}
	return Result{Allowed: true, Remaining: limit - int(n)}, nil
}

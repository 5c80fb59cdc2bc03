package rate

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es el fallback en memoria cuando no hay Redis configurado.
// Sirve para una sola instancia; los contadores expiran solos con la ventana.
type MemoryLimiter struct {
	mu sync.Mutex
	c  *gocache.Cache
}

type bucket struct {
	count   int
	resetAt time.Time
}

func NewMemory() *MemoryLimiter {
	return &MemoryLimiter{
		c: gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var b *bucket
	if v, ok := l.c.Get(key); ok {
		b = v.(*bucket)
		if now.After(b.resetAt) {
			b.count = 0
			b.resetAt = now.Add(window)
		}
	} else {
		b = &bucket{resetAt: now.Add(window)}
	}

	b.count++
	l.c.Set(key, b, window)

	if b.count > limit {
		return Result{Allowed: false, Remaining: 0, RetryAfter: time.Until(b.resetAt)}, nil
	}
	return Result{Allowed: true, Remaining: limit - b.count}, nil
}

package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/rueidis"
	log "github.com/sirupsen/logrus"

	apperrors "notegrid.app/notegrid/internal/errors"
)

// Limiter counts requests per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimiter rejects clients that exceed the limiter's budget. Limiter
// failures let the request through.
func RateLimiter(l Limiter, logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := l.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				logger.WithError(err).Warn("rate limiter unavailable")
				return next(c)
			}
			if !ok {
				return apperrors.ErrRateLimited
			}
			return next(c)
		}
	}
}

const maxBuckets = 10000

type bucket struct {
	count int
	start time.Time
}

// MemoryLimiter keeps per-process counters.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) > m.window {
		if !ok && len(m.buckets) >= maxBuckets {
			m.sweep(now)
		}
		b = &bucket{start: now}
		m.buckets[key] = b
	}

	if b.count >= m.limit {
		return false, nil
	}
	b.count++
	return true, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	for k, b := range m.buckets {
		if now.Sub(b.start) > m.window {
			delete(m.buckets, k)
		}
	}
}

// RedisLimiter shares counters between server instances. Each window is one
// key that expires with the window.
type RedisLimiter struct {
	client rueidis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client rueidis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := r.now().UnixNano() / int64(r.window)
	k := r.prefix + "ratelimit:" + key + ":" + strconv.FormatInt(slot, 10)

	n, err := r.client.Do(ctx, r.client.B().Incr().Key(k).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	if n == 1 {
		seconds := int64(r.window / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		if err := r.client.Do(ctx, r.client.B().Expire().Key(k).Seconds(seconds).Build()).Error(); err != nil {
			return false, err
		}
	}
	return n <= int64(r.limit), nil
}

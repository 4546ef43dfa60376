package httpmiddleware

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Limiter counts attempts per client key within a fixed window. Every attempt
// counts, whether the guarded request succeeds or not.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// FixedWindow is an in-memory limiter. Counters live in the process and reset
// on restart.
type FixedWindow struct {
	max    int
	window time.Duration
	mu     sync.Mutex
	state  map[string]*windowState
}

type windowState struct {
	count int
	start time.Time
}

// NewFixedWindow creates a limiter allowing max attempts per window.
func NewFixedWindow(max int, window time.Duration) *FixedWindow {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &FixedWindow{
		max:    max,
		window: window,
		state:  make(map[string]*windowState),
	}
}

// Allow records one attempt for key and reports whether it is within limits.
func (l *FixedWindow) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	w, ok := l.state[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.state[key] = &windowState{count: 1, start: now}
		return true
	}
	w.count++
	return w.count <= l.max
}

// RedisFixedWindow keeps counters in Redis so limits survive restarts and are
// shared across replicas. Redis failures fail open: an unavailable Redis must
// not lock every admin out.
type RedisFixedWindow struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewRedisFixedWindow creates a Redis-backed limiter using INCR with an
// expiry set on the first hit of each window.
func NewRedisFixedWindow(client *redis.Client, prefix string, max int, window time.Duration) *RedisFixedWindow {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisFixedWindow{client: client, prefix: prefix, max: max, window: window}
}

// Allow records one attempt for key and reports whether it is within limits.
func (l *RedisFixedWindow) Allow(ctx context.Context, key string) bool {
	k := l.prefix + key
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		log.Printf("rate limit incr failed: %v", err)
		return true
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			log.Printf("rate limit expire failed: %v", err)
		}
	}
	return n <= int64(l.max)
}

// RateLimit returns a gin handler enforcing per-IP limits via the limiter.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(c.Request.Context(), ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
		c.Next()
	}
}

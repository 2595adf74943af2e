// Package httpmiddleware holds the cross-cutting gin middlewares: rate
// limiting, CORS and security headers.
package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// PerIPLimiter is an in-memory token bucket keyed by client IP. One
// process, one limiter; multi-instance deployments should front this
// with a shared limiter instead.
type PerIPLimiter struct {
	capacity int
	rate     int // tokens per minute

	mu    sync.Mutex
	state map[string]*bucket
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewPerIPLimiter creates a limiter allowing perMinute requests with
// bursts up to capacity.
func NewPerIPLimiter(capacity, perMinute int) *PerIPLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &PerIPLimiter{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
	}
}

// Gin returns the enforcement middleware.
func (l *PerIPLimiter) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"success": false, "error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (l *PerIPLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.state[key]
	if !ok {
		l.pruneLocked(now)
		l.state[key] = &bucket{tokens: l.capacity - 1, last: now}
		return true
	}

	refill := int(now.Sub(b.last).Minutes() * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// pruneLocked drops buckets idle long enough to have fully refilled.
func (l *PerIPLimiter) pruneLocked(now time.Time) {
	if len(l.state) < 10000 {
		return
	}
	for k, b := range l.state {
		if now.Sub(b.last) > 10*time.Minute {
			delete(l.state, k)
		}
	}
}

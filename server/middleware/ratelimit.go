package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/resilience"
)

// RateLimitConfig configures the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate allowed per key. It is also the
	// burst size.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from a request. Defaults to client IP.
	KeyFunc func(*gin.Context) string
}

// idleAfter is how long an unused bucket is kept.
const idleAfter = 10 * time.Minute

// RateLimit returns a Gin middleware with one token bucket per key.
// Rejected requests get 429 with a Retry-After header.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	buckets := &bucketSet{
		cfg: resilience.RateLimiterConfig{
			Rate:  float64(cfg.RequestsPerMinute) / 60,
			Burst: cfg.RequestsPerMinute,
		},
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}

	return func(c *gin.Context) {
		rl := buckets.get(cfg.KeyFunc(c))
		if !rl.Allow() {
			wait := int(math.Ceil(rl.RetryAfter().Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(wait, 1)))
			abortWithError(c, apperrors.RateLimited().WithDetail("retry_after_seconds", max(wait, 1)))
			return
		}
		c.Next()
	}
}

// IPBasedKey uses the client IP as the rate limit key.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

type bucket struct {
	*resilience.RateLimiter
	lastSeen time.Time
}

type bucketSet struct {
	cfg resilience.RateLimiterConfig
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func (s *bucketSet) get(key string) *resilience.RateLimiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > idleAfter {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > idleAfter {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{RateLimiter: resilience.NewRateLimiter(s.cfg)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b.RateLimiter
}

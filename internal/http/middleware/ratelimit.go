// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter with one bucket
// per caller. Callers are identified by X-User-ID when present and by client
// IP otherwise. Denied requests surface as classified failures (429
// too_many_requests) rendered by the error dispatcher.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/tbourn/go-events-backend/internal/apperr"
)

const (
	defaultIdleTTL    = 10 * time.Minute
	sweepEveryLookups = 5000
)

// KeyFunc maps a request to the identity of its bucket.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the caller's user ID, falling back to the
// client IP for anonymous callers. Keys are prefixed so the namespaces never collide.
func KeyByUserOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if uid := callerID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// RateLimitOptions configures a RateLimiter.
type RateLimitOptions struct {
	// RPS is the refill rate in tokens per second. Zero denies everything
	// once the burst is spent.
	RPS float64
	// Burst is the bucket size; values <= 0 become 1.
	Burst int
	// Key selects the bucket; nil means KeyByUserOrIP.
	Key KeyFunc
	// IdleTTL evicts buckets unused for this long; <= 0 means 10 minutes.
	IdleTTL time.Duration
	// Exempt lists exact request paths that are never limited (probes,
	// metrics scrapes).
	Exempt []string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out per-caller token buckets. Safe for concurrent use.
type RateLimiter struct {
	limit      rate.Limit
	burst      int
	key        KeyFunc
	idleTTL    time.Duration
	exempt     map[string]struct{}
	retryAfter string

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups uint64
}

// NewRateLimiter builds a limiter from opts.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	rl := &RateLimiter{
		limit:      rate.Limit(opts.RPS),
		burst:      opts.Burst,
		key:        opts.Key,
		idleTTL:    opts.IdleTTL,
		exempt:     make(map[string]struct{}, len(opts.Exempt)),
		retryAfter: retryAfterSeconds(opts.RPS),
		buckets:    make(map[string]*bucket),
	}
	if rl.burst <= 0 {
		rl.burst = 1
	}
	if rl.key == nil {
		rl.key = KeyByUserOrIP()
	}
	if rl.idleTTL <= 0 {
		rl.idleTTL = defaultIdleTTL
	}
	for _, p := range opts.Exempt {
		rl.exempt[p] = struct{}{}
	}
	return rl
}

// retryAfterSeconds is the time for one token to refill, rounded up to whole
// seconds (minimum 1).
func retryAfterSeconds(rps float64) string {
	if rps <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/rps))))
}

// limiterFor returns the bucket for key, creating it if needed. Every
// sweepEveryLookups calls, idle buckets are evicted first so a stale bucket
// cannot be revived by its own lookup.
func (rl *RateLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepEveryLookups {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.idleTTL {
				delete(rl.buckets, k)
			}
		}
		rl.lookups = 0
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Len reports the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// IsRateBypass reports whether IdempotencyValidator flagged this request as
// a replay, which is served without spending tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware enforcing the limits.
//
// A denied request gets Retry-After and is aborted with apperr.RateLimited.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, skip := rl.exempt[c.Request.URL.Path]; skip || IsRateBypass(c) {
			c.Next()
			return
		}

		if rl.limiterFor(rl.key(c), time.Now()).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", rl.retryAfter)
		_ = c.Error(apperr.RateLimited())
		c.Abort()
	}
}

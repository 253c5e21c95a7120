// In-memory token-bucket rate limiting, keyed per cardholder (or client IP
// when anonymous). The intake, classification, and evidence endpoints each
// fan out to a paid model call, so one customer's burst must not drain the
// upstream quota for everyone else. Replays flagged by IdempotencyValidator
// bypass the limiter: they are served from the ledger and cost nothing.
//
// The limiter is process-local. A horizontally scaled deployment needs a
// shared limiter in front; this one is edge-level cost protection only.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc maps a request to the identity owning its bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys buckets by the authenticated user when present, else by
// client IP. Keys are namespaced ("user:…" vs "ip:…") so the two spaces
// cannot collide.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if uid := asString(v); uid != "" {
				return "user:" + uid
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor pairs a bucket with its last-seen time for idle eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds per-key token buckets behind a mutex, evicting idle
// entries opportunistically during lookups. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// visitorTTL is how long an idle bucket survives before opportunistic GC may
// evict it. cleanupEvery is the lookup count between GC sweeps.
const (
	visitorTTL   = 10 * time.Minute
	cleanupEvery = 5000
)

// NewRateLimiter builds a limiter replenishing rps tokens per second with the
// given burst (coerced to at least 1), keyed by keyFn.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      visitorTTL,
	}
}

// getVisitor fetches or creates the bucket for key. Every cleanupEvery
// lookups it first sweeps idle entries; the sweep runs before the fetch so a
// stale bucket is evicted even when it is the one being requested.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= cleanupEvery {
		rl.sweepLocked(now)
		rl.cleanupN = 0
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// sweepLocked drops buckets idle past the TTL. Caller holds rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) >= rl.ttl {
			delete(rl.visitors, k)
		}
	}
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay, in which case Handler serves it without consuming tokens.
func IsRateBypass(c *gin.Context) bool {
	return ctxBool(c, ctxKeyRateBypass)
}

// Handler enforces the per-key limit, answering 429 with a Retry-After hint
// and the standard compact error body when a bucket is empty.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		if rl.getVisitor(rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}

// Idempotency-Key validation for the destructive dispute operations.
//
// The conversation delete endpoint requires a client-supplied key so retries
// never cascade a second delete. This middleware validates the header shape,
// stashes the key for the handler, and consults a pluggable lookup to flag
// replays; serving the cached result stays the handler's job. Keys are scoped
// per user, not per conversation, matching the ledger's unique index.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's
// deduplication key for unsafe operations.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys for idempotency state, read through the accessors below.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: a stored result exists for this key
	ctxKeyRateBypass = "rate.bypass" // bool: rate limiter should wave through
)

// GetIdempotencyKey returns the validated key stashed by IdempotencyValidator
// and whether one is present. Handlers should use this rather than re-reading
// the header.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	key := asString(v)
	return key, key != ""
}

// IsReplay reports whether this request matches a previously completed
// operation for the same user and key.
func IsReplay(c *gin.Context) bool {
	return ctxBool(c, ctxKeyIdemReplay)
}

// IdempotencyOptions configures header validation. TTL is not checked here;
// the lookup owns expiry.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil selects a conservative
	// token pattern: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports whether a still-valid stored result exists for
// (userID, key) at the given time. Errors are lookup failures only and must
// not block normal processing.
type IdempotencyLookup func(ctx context.Context, userID, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes it, and flags replays detected by the lookup so the rate limiter
// skips them and the handler can serve the stored response. Requests without
// the header pass through untouched; malformed keys get a 400.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			if exists, _ := lookup(c.Request.Context(), userIDFromCtx(c), key, time.Now().UTC()); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// userIDFromCtx resolves the caller identity the same way the handlers do:
// upstream auth context first, then the X-User-ID header, then the demo
// identity. The replay lookup must scope to the same ledger rows the handler
// will write.
func userIDFromCtx(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if uid := asString(v); uid != "" {
			return uid
		}
	}
	if c.Request != nil {
		if uid := strings.TrimSpace(c.GetHeader("X-User-ID")); uid != "" {
			return uid
		}
	}
	return "demo-user"
}

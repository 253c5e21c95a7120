// Hardening headers for the dispute API. The API serves JSON only, so there
// is no CSP; the baseline set covers sniffing, framing, and referrer leakage,
// with opt-in cache suppression (dispute payloads carry transaction and
// evidence details) and opt-in HSTS for deployments that are HTTPS
// end-to-end.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests, never on
	// plain HTTP. Leave off for localhost or when the proxy-to-app hop is
	// plain HTTP.
	EnableHSTS bool
	// HSTSMaxAge is the HSTS lifetime. Values <= 0 default to 180 days.
	HSTSMaxAge time.Duration
	// NoStore adds Cache-Control: no-store plus the legacy Pragma/Expires
	// pair. Keep on in production.
	NoStore bool
	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies. Browser-only effect, harmless for
	// API clients.
	EnablePolicy bool
}

// SecurityHeaders attaches the configured security headers to every response.
// Baseline (always set): X-Content-Type-Options nosniff, X-Frame-Options
// DENY, Referrer-Policy no-referrer. When a correlation ID is on the
// response, it is also added to Access-Control-Expose-Headers so browser
// clients can read it. Safe alongside the CORS and logging middleware.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hstsValue := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			exposeRequestID(h)
		}

		c.Next()
	}
}

// exposeRequestID appends X-Request-ID to Access-Control-Expose-Headers
// without clobbering or duplicating entries set by the CORS layer.
func exposeRequestID(h http.Header) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	switch {
	case cur == "":
		h.Set(hdr, "X-Request-ID")
	case !strings.Contains(cur, "X-Request-ID"):
		h.Set(hdr, cur+", X-Request-ID")
	}
}

// isHTTPS reports whether the request arrived over TLS, either directly or
// behind a proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

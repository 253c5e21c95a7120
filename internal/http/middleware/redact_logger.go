// RedactingLogger: the access logger used in front of the dispute endpoints.
// Request metadata routinely carries cardholder PII (emails and phone numbers
// in intake answers, transaction UUIDs, occasionally a typed-out card number),
// so everything logged passes through a scrubbing pass first. Bodies are
// never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Scrub patterns, applied in order from most to least specific. UUIDs go
// before phones so the phone pattern cannot swallow a UUID's digit runs, and
// PANs go before phones for the same reason: a grouped card number looks like
// several phone numbers to the loose pattern.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Card primary account numbers: 13-19 digits, optionally grouped by
	// spaces or hyphens.
	panRE = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	// Digits-only phone shapes: "+1 212-555-1212", "(212) 555-1212", etc.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func scrub(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	s = panRE.ReplaceAllString(s, "[REDACTED:pan]")
	s = phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactOptions configures extra scrub behavior.
//
// MaskHeaders names additional headers whose values are replaced wholesale
// with "[REDACTED]". Matching is case-insensitive; Authorization, Cookie, and
// Set-Cookie are always masked.
type RedactOptions struct {
	MaskHeaders []string
}

func maskSet(extra []string) map[string]struct{} {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	return masked
}

// RedactingLogger logs one structured line per request with scrubbed query
// string and headers. Level follows the response status: info, warn for 4xx,
// error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := maskSet(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := scrub(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = scrub(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()

		// Prefer the response header: RequestID() writes the canonical value
		// there even when the client supplied its own.
		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}

		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

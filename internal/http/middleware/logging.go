// Package middleware contains the shared Gin middleware for the dispute API:
// correlation IDs, structured logging with PII redaction, panic recovery,
// Prometheus metrics, idempotency-key validation, rate limiting, and security
// headers.
//
// Recommended order: RequestID, then RedactingLogger (or Logger), then
// Recovery, so every log line and panic report carries the correlation ID.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key holding the correlation ID.
	requestIDKey = "requestID"
	// requestIDHeader carries the correlation ID on requests and responses.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps logged query strings; dispute queries are short,
	// anything longer is noise.
	maxQueryLogLength = 2048
)

// RequestID reuses the caller's X-Request-ID when present, otherwise mints a
// UUIDv4, and makes the ID available on both the response header and the Gin
// context. Mount first.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// requestLogger builds the request-scoped logger with the fields shared by
// every access-log line.
func requestLogger(c *gin.Context) zerolog.Logger {
	rid, _ := c.Get(requestIDKey)
	uid, _ := c.Get("userID")
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return log.With().
		Str("request_id", asString(rid)).
		Str("user_id", asString(uid)).
		Str("method", c.Request.Method).
		Str("path", path).
		Str("remote_ip", c.ClientIP()).
		Str("user_agent", c.Request.UserAgent()).
		Str("referer", c.Request.Referer()).
		Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
		Int64("bytes_in", c.Request.ContentLength).
		Logger()
}

// Logger emits one structured access-log line per request and stashes a
// request-scoped zerolog.Logger under the "logger" context key for handlers
// and services to enrich. Level tracks the outcome: error for 5xx or when the
// Gin context collected errors, warn for 4xx, info otherwise.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		l := requestLogger(c)
		c.Set("logger", &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.With().
			Int("status", status).
			Dur("latency", time.Since(start)).
			Int("bytes_out", c.Writer.Size()).
			Logger()

		switch {
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery turns a panic into a logged stack trace and a JSON 500 envelope.
// When the handler already started writing, only the status can be forced;
// no body is appended to a partial response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger attached by Logger or
// RedactingLogger, or the global logger when none was attached. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString narrows a context value to string, empty for anything else.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// ctxBool reads a bool flag from the Gin context; absent or wrong-typed
// values read as false.
func ctxBool(c *gin.Context, key string) bool {
	v, ok := c.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// truncate caps s at max bytes, appending an ellipsis. max <= 0 disables
// truncation. Byte-oriented on purpose; this only feeds log output.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

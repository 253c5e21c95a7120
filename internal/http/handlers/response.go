// Package handlers implements the HTTP endpoints of the dispute API.
//
// Error handling is funneled through two helpers so every endpoint speaks the
// same envelope: fail writes an ErrorResponse with a stable machine-readable
// code, and failFromService translates service and classification-port errors
// into their HTTP shape. A client can always branch on `code` and show
// `message` as-is.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dispute-backend/internal/ai"
	"github.com/tbourn/go-dispute-backend/internal/http/middleware"
	"github.com/tbourn/go-dispute-backend/internal/services"
)

// ErrorResponse is the error envelope returned by every endpoint. RequestID
// echoes the X-Request-ID header so a client report can be matched to server
// logs; Code is one of the errors.go constants.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	Message   string `json:"message" example:"transaction not found"`
}

// fail aborts the request with the standard envelope. Server-side failures
// (5xx) are additionally logged through the request-scoped logger; 4xx are
// the client's problem and stay out of the error log.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail exposes the envelope writer to the router for NoRoute/NoMethod
// handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failFromService maps service and classification-port errors to their HTTP
// representation. Every endpoint funnels non-validation errors through here
// so the taxonomy stays consistent: not-found → 404, state conflict → 400
// with the current status echoed, upstream throttling → 429, upstream
// quota/billing → 402, everything else → 500.
func failFromService(c *gin.Context, err error) {
	var conflict *services.StateConflictError
	switch {
	case errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, services.ErrConversationNotFound),
		errors.Is(err, services.ErrRepresentmentNotFound),
		errors.Is(err, services.ErrEvidenceRequestNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.As(err, &conflict):
		fail(c, http.StatusBadRequest, ErrCodeStateConflict, conflict.Error())
	case errors.Is(err, services.ErrInvalidStep),
		errors.Is(err, services.ErrEmptyReason):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, ai.ErrRateLimited):
		fail(c, http.StatusTooManyRequests, ErrCodeUpstreamLimit, "classification service is throttling requests, retry shortly")
	case errors.Is(err, ai.ErrQuotaExhausted):
		fail(c, http.StatusPaymentRequired, ErrCodeUpstreamQuota, "classification service quota exhausted, check billing")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// ok writes body as the JSON success response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

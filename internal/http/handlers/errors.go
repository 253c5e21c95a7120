// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package). These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, unauthorized, state_conflict) mirror common
//     HTTP status semantics to aid interoperability.
//   - The upstream_* codes are reserved for classification-service failures and map
//     to 429 (throttled) and 402 (quota/billing) so clients can distinguish
//     "retry later" from "check billing".
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "state_conflict",
//	  "message": "accept representment not allowed in status closed_lost"
//	}
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeStateConflict    = "state_conflict"
	ErrCodeUpstreamLimit    = "upstream_rate_limited"
	ErrCodeUpstreamQuota    = "upstream_quota"
	ErrCodeVerifyFailed     = "verification_failed"
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeMissingIdemKey   = "missing_idempotency_key"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// Package services implements the dispute lifecycle engine: eligibility
// evaluation, AI-assisted intake and classification, evidence verification
// and sufficiency scoring, representment resolution, and the idempotent
// deletion guard. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer; the
// handler layer translates them into HTTP statuses and stable error codes.
package services

import "errors"

var (
	// ErrTransactionNotFound indicates that the referenced transaction does
	// not exist or is not accessible to the current user.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not owned by the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrRepresentmentNotFound indicates that the transaction has no active
	// representment to resolve.
	ErrRepresentmentNotFound = errors.New("no active representment")

	// ErrEvidenceRequestNotFound indicates that there is no pending evidence
	// request for the transaction.
	ErrEvidenceRequestNotFound = errors.New("no pending evidence request")

	// ErrInvalidStep is returned when an intake call names a step outside
	// the fixed sequence.
	ErrInvalidStep = errors.New("unknown intake step")

	// ErrEmptyReason is returned when a classification request carries no
	// usable free-text reason.
	ErrEmptyReason = errors.New("dispute reason is empty")

	// ErrReversalFailed indicates that a representment acceptance completed
	// its decision but could not write the temporary-credit reversal; the
	// transaction is left flagged for manual recovery instead of closed.
	ErrReversalFailed = errors.New("temporary credit reversal failed")
)

// StateConflictError reports an operation invoked while the dispute is in a
// status the transition table does not allow it from. The current status is
// carried so the response can name it instead of failing opaquely.
type StateConflictError struct {
	Operation     string
	CurrentStatus string
}

// Error implements the error interface.
func (e *StateConflictError) Error() string {
	return e.Operation + " not allowed in status " + e.CurrentStatus
}

// Package ai defines the classification port: the narrow, typed contract
// through which the dispute engine delegates judgment calls to an external
// model service. Every AI-backed step (intake question generation, reason
// classification, document verification, sufficiency scoring) goes through
// this interface, which keeps rate-limit and quota handling in one place and
// lets tests substitute a deterministic implementation.
package ai

import (
	"context"
	"errors"
)

// Upstream failure classes. Callers must not conflate these with generic
// errors: the HTTP layer maps ErrRateLimited to 429 and ErrQuotaExhausted to
// 402 so the client can choose between backing off and billing guidance.
var (
	// ErrRateLimited indicates the classification service throttled the call.
	ErrRateLimited = errors.New("classification service rate limited")

	// ErrQuotaExhausted indicates the classification service rejected the call
	// for billing or capacity reasons.
	ErrQuotaExhausted = errors.New("classification service quota exhausted")

	// ErrMalformedResponse indicates the service answered but the structured
	// result could not be parsed. This is a hard failure for the step; only
	// the sufficiency evaluator is allowed to degrade instead of failing.
	ErrMalformedResponse = errors.New("malformed classification response")
)

// Category is the fixed dispute-reason taxonomy.
type Category string

// Dispute categories.
const (
	CategoryFraud           Category = "fraud"
	CategoryNotReceived     Category = "not_received"
	CategoryDuplicate       Category = "duplicate"
	CategoryIncorrectAmount Category = "incorrect_amount"
	CategoryDefective       Category = "defective"
	CategoryBillingError    Category = "billing_error"
	CategoryNotEligible     Category = "not_eligible"
)

// KnownCategory reports whether c is one of the six dispute categories or
// the not_eligible marker.
func KnownCategory(c Category) bool {
	switch c {
	case CategoryFraud, CategoryNotReceived, CategoryDuplicate,
		CategoryIncorrectAmount, CategoryDefective, CategoryBillingError,
		CategoryNotEligible:
		return true
	}
	return false
}

// Label returns the customer-facing label for a category.
func (c Category) Label() string {
	switch c {
	case CategoryFraud:
		return "Unauthorized transaction"
	case CategoryNotReceived:
		return "Goods or services not received"
	case CategoryDuplicate:
		return "Duplicate charge"
	case CategoryIncorrectAmount:
		return "Incorrect amount charged"
	case CategoryDefective:
		return "Defective or not as described"
	case CategoryBillingError:
		return "Billing error"
	case CategoryNotEligible:
		return "Not eligible for chargeback"
	}
	return string(c)
}

// Turn is one question/answer exchange from the intake dialogue.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TransactionContext carries the commerce facts the model needs to reason
// about a dispute. Amount and date are preformatted strings so the port does
// not depend on domain types.
type TransactionContext struct {
	MerchantName string `json:"merchant_name"`
	Amount       string `json:"amount"`
	Date         string `json:"date"`
}

// QuestionRequest asks for the next intake follow-up question, conditioned
// on the prior turns.
type QuestionRequest struct {
	Transaction TransactionContext
	Turns       []Turn
}

// QuestionResult is a generated follow-up question. MerchantMismatch is set
// when the customer appears to describe a different merchant than the one on
// the transaction; in that case Question is a clarification question and
// takes priority over ordinary follow-up generation.
type QuestionResult struct {
	Question         string `json:"question"`
	MerchantMismatch bool   `json:"merchant_mismatch"`
	DetectedIssue    string `json:"detected_issue"`
}

// EvidenceItem names a document the customer must supply and the upload
// types accepted for it.
type EvidenceItem struct {
	Name        string   `json:"name"`
	UploadTypes []string `json:"upload_types"`
}

// IntakeRequest asks for the final verdict of the guided 3-turn intake.
type IntakeRequest struct {
	Transaction TransactionContext
	Turns       []Turn
}

// IntakeResult is the end-of-intake decision. Reasoning is bank-only and
// must never reach the customer; UserMessage is the only customer-visible
// text and states eligibility and document requirements, nothing more.
type IntakeResult struct {
	ChargebackPossible bool           `json:"chargeback_possible"`
	Reasoning          string         `json:"reasoning"`
	Category           Category       `json:"category"`
	RequiredEvidence   []EvidenceItem `json:"required_evidence"`
	UserMessage        string         `json:"user_message"`
}

// ReasonRequest asks for the single-shot classification of a free-text
// dispute reason, outside the guided flow.
type ReasonRequest struct {
	Transaction TransactionContext
	Reason      string
}

// ReasonResult is the single-shot classification outcome.
type ReasonResult struct {
	Category    Category       `json:"category"`
	Explanation string         `json:"explanation"`
	Documents   []EvidenceItem `json:"documents"`
	UserMessage string         `json:"user_message"`
}

// Leniency tunes how strictly a document judgment should be made. Image
// content is inspected, so judgments are strict; PDF and other formats are
// judged from metadata only and graded leniently.
type Leniency string

// Leniency levels.
const (
	LeniencyStrict   Leniency = "strict"
	LeniencyModerate Leniency = "moderate"
	LeniencyLenient  Leniency = "lenient"
)

// DocumentRequest asks whether one uploaded file plausibly satisfies its
// declared evidence requirement. ImageData is set only for image uploads and
// triggers a vision judgment; for every other format the model sees metadata
// only (filename, declared type, size).
type DocumentRequest struct {
	RequirementName string
	DisputeCategory string
	DisputeReason   string
	FileName        string
	ContentType     string
	SizeBytes       int64
	ImageData       []byte
	Leniency        Leniency
}

// DocumentVerdict is the uniform per-document verification contract.
type DocumentVerdict struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason"`
}

// SufficiencyRequest asks for a free-form rebuttal to be scored against a
// fixed criteria rubric.
type SufficiencyRequest struct {
	Transaction TransactionContext
	Note        string
	FileNames   []string
	Criteria    []string
}

// SufficiencyResult is the rubric verdict: Sufficient is true when at least
// the configured number of criteria are met.
type SufficiencyResult struct {
	Sufficient bool     `json:"sufficient"`
	Reasons    []string `json:"reasons"`
	Summary    string   `json:"summary"`
}

// Port is the classification capability consumed by the services layer.
//
// Implementations must honor the context for cancellation, return the
// sentinel errors above for the matching upstream failure classes, and be
// safe for concurrent use.
type Port interface {
	// GenerateQuestion produces the next intake follow-up question.
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*QuestionResult, error)
	// EvaluateIntake produces the final intake verdict with exactly two
	// required evidence items when a chargeback is possible.
	EvaluateIntake(ctx context.Context, req IntakeRequest) (*IntakeResult, error)
	// ClassifyReason maps a free-text reason to a category and exactly three
	// required documents (zero for not_eligible).
	ClassifyReason(ctx context.Context, req ReasonRequest) (*ReasonResult, error)
	// JudgeDocument validates one uploaded file against its requirement.
	JudgeDocument(ctx context.Context, req DocumentRequest) (*DocumentVerdict, error)
	// ScoreEvidence grades a rebuttal against the sufficiency rubric.
	ScoreEvidence(ctx context.Context, req SufficiencyRequest) (*SufficiencyResult, error)
}

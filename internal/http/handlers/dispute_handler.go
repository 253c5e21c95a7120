// Dispute HTTP handlers.
//
// This file exposes the customer-facing dispute endpoints:
//   - POST /disputes/eligibility   (rule-engine verdict)
//   - POST /disputes/intake        (guided 3-turn interview, one step per call)
//   - POST /disputes/classify     (single-shot free-text classification)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Classification-service failures
// keep their distinct statuses (429 throttled, 402 quota) so clients can react
// appropriately.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-dispute-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// DisputeService defines the persisted dispute operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type DisputeService interface {
	// CheckEligibility evaluates the rule set for one of the user's
	// transactions and records the verdict.
	CheckEligibility(ctx context.Context, userID, transactionID string) (*services.EligibilityResult, error)
	// AuditTrail returns one page of a transaction's audit rows.
	AuditTrail(ctx context.Context, transactionID string, page, perPage int) (*services.AuditPage, error)
}

// IntakeService runs one step of the guided intake dialogue.
type IntakeService interface {
	Run(ctx context.Context, in services.IntakeInput) (*services.IntakeStepResult, error)
}

// ClassifierService classifies a free-text dispute reason.
type ClassifierService interface {
	Classify(ctx context.Context, merchantName, amount, date, reason string) (*services.Classification, error)
}

// VerificationService validates uploaded evidence files.
type VerificationService interface {
	Verify(ctx context.Context, items []services.VerificationItem, dc services.DisputeContext) (*services.VerificationResult, error)
}

// SufficiencyService scores customer rebuttals.
type SufficiencyService interface {
	Evaluate(ctx context.Context, userID, transactionID, note string, fileNames []string) (*services.SufficiencyOutcome, error)
}

// RepresentmentService resolves merchant counter-evidence.
type RepresentmentService interface {
	Detect(ctx context.Context, transactionID, details string, dueAt *time.Time) (*services.DetectOutcome, error)
	Accept(ctx context.Context, adminID, transactionID, notes string) (*services.AcceptOutcome, error)
	Reject(ctx context.Context, adminID, transactionID, adminNotes string, requestedItems []string) (*services.RejectOutcome, error)
	RejectCustomerEvidence(ctx context.Context, adminID, transactionID, notes string) (*services.AcceptOutcome, error)
}

// DeletionService deletes conversations behind the idempotency ledger.
type DeletionService interface {
	Delete(ctx context.Context, userID, conversationID, idempotencyKey string) (*services.DeleteResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the dispute API. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	disputeSvc    DisputeService
	intakeSvc     IntakeService
	classifierSvc ClassifierService
	verifySvc     VerificationService
	suffSvc       SufficiencyService
	repSvc        RepresentmentService
	deleteSvc     DeletionService
}

// New constructs a Handlers instance bound to the given services.
func New(
	disputeSvc DisputeService,
	intakeSvc IntakeService,
	classifierSvc ClassifierService,
	verifySvc VerificationService,
	suffSvc SufficiencyService,
	repSvc RepresentmentService,
	deleteSvc DeletionService,
) *Handlers {
	return &Handlers{
		disputeSvc:    disputeSvc,
		intakeSvc:     intakeSvc,
		classifierSvc: classifierSvc,
		verifySvc:     verifySvc,
		suffSvc:       suffSvc,
		repSvc:        repSvc,
		deleteSvc:     deleteSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// requireBankAdmin enforces the bank-administrator role precondition. Role
// resolution happens upstream; here only the resolved role header/context
// value is checked. Returns false after writing the error response.
func requireBankAdmin(c *gin.Context) bool {
	role := ""
	if v, ok := c.Get("userRole"); ok {
		role, _ = v.(string)
	}
	if role == "" && c != nil && c.Request != nil {
		role = strings.TrimSpace(c.GetHeader("X-User-Role"))
	}
	if role == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing role credential")
		return false
	}
	if role != "bank_admin" {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "bank administrator role required")
		return false
	}
	return true
}

//
// DTOs
//

// EligibilityRequest is the JSON payload for an eligibility check.
type EligibilityRequest struct {
	TransactionID string `json:"transaction_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// IntakeRequest is the JSON payload for one intake step.
type IntakeRequest struct {
	// Step selects the dialogue step: generate_q2, generate_q3, evaluate.
	Step              string `json:"step" binding:"required" example:"generate_q2"`
	Answer1           string `json:"answer1" example:"I never received the package"`
	Answer2           string `json:"answer2"`
	Answer3           string `json:"answer3"`
	Question2         string `json:"question2"`
	Question3         string `json:"question3"`
	MerchantName      string `json:"merchant_name" example:"ACME Store"`
	TransactionAmount string `json:"transaction_amount" example:"59.99 EUR"`
	TransactionDate   string `json:"transaction_date" example:"2026-08-12"`
}

// ClassifyRequest is the JSON payload for single-shot reason classification.
type ClassifyRequest struct {
	CustomReason      string `json:"custom_reason" binding:"required" example:"They charged me twice for one order"`
	MerchantName      string `json:"merchant_name"`
	TransactionAmount string `json:"transaction_amount"`
	TransactionDate   string `json:"transaction_date"`
}

//
// Handlers
//

// CheckEligibility godoc
// @ID          checkEligibility
// @Summary     Check dispute eligibility
// @Description Evaluates the dispute-eligibility rules for one of the user's transactions and records the verdict in the audit trail.
// @Tags        Disputes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.EligibilityRequest  true  "Eligibility payload"
//
// @Success     200  {object}  services.EligibilityResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Transaction not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /disputes/eligibility [post]
func (h *Handlers) CheckEligibility(c *gin.Context) {
	var req EligibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	res, err := h.disputeSvc.CheckEligibility(c.Request.Context(), userID(c), req.TransactionID)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// IntakeStep godoc
// @ID          intakeStep
// @Summary     Run one intake step
// @Description Runs one step of the guided 3-turn dispute interview. The caller holds all answers and passes them back on each call.
// @Tags        Disputes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.IntakeRequest  true  "Intake step payload"
//
// @Success     200  {object}  services.IntakeStepResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Upstream quota exhausted"
// @Failure     429  {object}  handlers.ErrorResponse  "Upstream rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /disputes/intake [post]
func (h *Handlers) IntakeStep(c *gin.Context) {
	var req IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "step required")
		return
	}

	res, err := h.intakeSvc.Run(c.Request.Context(), services.IntakeInput{
		Step:              req.Step,
		Answer1:           req.Answer1,
		Answer2:           req.Answer2,
		Answer3:           req.Answer3,
		Question2:         req.Question2,
		Question3:         req.Question3,
		MerchantName:      req.MerchantName,
		TransactionAmount: req.TransactionAmount,
		TransactionDate:   req.TransactionDate,
	})
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// ClassifyReason godoc
// @ID          classifyReason
// @Summary     Classify a free-text dispute reason
// @Description Maps one free-text description to a dispute category with exactly three required evidence items (zero when not eligible).
// @Tags        Disputes
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       body       body    handlers.ClassifyRequest  true  "Classification payload"
//
// @Success     200  {object}  services.Classification
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     402  {object}  handlers.ErrorResponse  "Upstream quota exhausted"
// @Failure     429  {object}  handlers.ErrorResponse  "Upstream rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /disputes/classify [post]
func (h *Handlers) ClassifyReason(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "custom_reason required")
		return
	}

	res, err := h.classifierSvc.Classify(c.Request.Context(),
		req.MerchantName, req.TransactionAmount, req.TransactionDate, req.CustomReason)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

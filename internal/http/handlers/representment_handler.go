// Representment HTTP handlers.
//
// This file exposes the bank-operator endpoints resolving merchant
// counter-evidence:
//   - POST /representments/detect          (register newly arrived counter-evidence)
//   - POST /representments/accept          (bank concedes, dispute closes lost)
//   - POST /representments/reject          (bank sides with customer, case re-opens)
//   - POST /representments/reject-evidence (final ruling against the rebuttal)
//
// All but detect require the bank_admin role; the role itself is resolved
// upstream and only checked here. Out-of-state calls return 400 with code
// state_conflict and the current status in the message.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//
// DTOs
//

// DetectRequest is the JSON payload registering merchant counter-evidence.
type DetectRequest struct {
	TransactionID string     `json:"transaction_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Details       string     `json:"details" example:"Merchant provided delivery confirmation"`
	DueAt         *time.Time `json:"due_at,omitempty"`
}

// ResolveRequest is the JSON payload for accept / reject / reject-evidence.
type ResolveRequest struct {
	TransactionID  string   `json:"transaction_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Notes          string   `json:"notes"`
	AdminNotes     string   `json:"admin_notes"`
	RequestedItems []string `json:"requested_items"`
}

// ResolveResponse is the common success envelope of the resolver endpoints.
type ResolveResponse struct {
	Success        bool   `json:"success"`
	NewStatus      string `json:"new_status,omitempty"`
	CreditReversal bool   `json:"credit_reversal,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

//
// Handlers
//

// DetectRepresentment godoc
// @ID          detectRepresentment
// @Summary     Register merchant counter-evidence
// @Description Records newly arrived counter-evidence for a transaction and moves an open dispute to representment_received. A call with nothing to detect is a no-op success.
// @Tags        Representments
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.DetectRequest  true  "Detection payload"
//
// @Success     200  {object}  services.DetectOutcome
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Transaction not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /representments/detect [post]
func (h *Handlers) DetectRepresentment(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	out, err := h.repSvc.Detect(c.Request.Context(), req.TransactionID, req.Details, req.DueAt)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AcceptRepresentment godoc
// @ID          acceptRepresentment
// @Summary     Accept a representment
// @Description Bank concedes to the merchant: any temporary credit is reversed and the dispute closes as lost. Valid only from a bank decision point.
// @Tags        Representments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  false "Operator ID"             example(ops-7)
// @Param       X-User-Role  header  string  true  "Role, must be bank_admin" example(bank_admin)
// @Param       body         body    handlers.ResolveRequest  true  "Accept payload"
//
// @Success     200  {object}  handlers.ResolveResponse
// @Failure     400  {object}  handlers.ErrorResponse  "State conflict"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing credential"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient role"
// @Failure     404  {object}  handlers.ErrorResponse  "Transaction not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /representments/accept [post]
func (h *Handlers) AcceptRepresentment(c *gin.Context) {
	if !requireBankAdmin(c) {
		return
	}
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	out, err := h.repSvc.Accept(c.Request.Context(), userID(c), req.TransactionID, req.Notes)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ResolveResponse{
		Success:        true,
		NewStatus:      string(out.NewStatus),
		CreditReversal: out.CreditReversal,
	})
}

// RejectRepresentment godoc
// @ID          rejectRepresentment
// @Summary     Reject a representment
// @Description Bank sides with the customer: an evidence request is opened and the customer's conversation is re-opened with an injected assistant message.
// @Tags        Representments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  false "Operator ID"              example(ops-7)
// @Param       X-User-Role  header  string  true  "Role, must be bank_admin"  example(bank_admin)
// @Param       body         body    handlers.ResolveRequest  true  "Reject payload"
//
// @Success     200  {object}  handlers.ResolveResponse
// @Failure     400  {object}  handlers.ErrorResponse  "State conflict"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing credential"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient role"
// @Failure     404  {object}  handlers.ErrorResponse  "Transaction not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /representments/reject [post]
func (h *Handlers) RejectRepresentment(c *gin.Context) {
	if !requireBankAdmin(c) {
		return
	}
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	out, err := h.repSvc.Reject(c.Request.Context(), userID(c), req.TransactionID, req.AdminNotes, req.RequestedItems)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ResolveResponse{
		Success:        true,
		NewStatus:      string(out.NewStatus),
		ConversationID: out.ConversationID,
	})
}

// RejectCustomerEvidence godoc
// @ID          rejectCustomerEvidence
// @Summary     Reject a customer rebuttal
// @Description Final ruling against the customer's resubmitted evidence: any outstanding temporary credit becomes a finalized refund and the dispute closes as merchant_won.
// @Tags        Representments
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID    header  string  false "Operator ID"              example(ops-7)
// @Param       X-User-Role  header  string  true  "Role, must be bank_admin"  example(bank_admin)
// @Param       body         body    handlers.ResolveRequest  true  "Reject-evidence payload"
//
// @Success     200  {object}  handlers.ResolveResponse
// @Failure     400  {object}  handlers.ErrorResponse  "State conflict"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing credential"
// @Failure     403  {object}  handlers.ErrorResponse  "Insufficient role"
// @Failure     404  {object}  handlers.ErrorResponse  "Transaction not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /representments/reject-evidence [post]
func (h *Handlers) RejectCustomerEvidence(c *gin.Context) {
	if !requireBankAdmin(c) {
		return
	}
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transaction_id required")
		return
	}

	out, err := h.repSvc.RejectCustomerEvidence(c.Request.Context(), userID(c), req.TransactionID, req.AdminNotes)
	if err != nil {
		failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, ResolveResponse{
		Success:        true,
		NewStatus:      string(out.NewStatus),
		CreditReversal: out.CreditReversal,
	})
}

// Package services – RepresentmentService
//
// This file implements the representment resolution state machine: detecting
// newly arrived merchant counter-evidence, the bank conceding (accept), the
// bank siding with the customer (reject, which re-opens the case and asks for
// more evidence), and the final rejection of a customer rebuttal. Every
// transition is guarded by a conditional status update so concurrent
// operators cannot both win, and every completed transition appends an audit
// row with the compliance snapshot.
//
// Credit-reversal failure during acceptance is the one deliberately
// non-atomic path: the reversal is written before the closing transaction so
// a failed reversal leaves the case in accepted_reversal_failed with
// needs_attention set, never silently closed. A retried accept from that
// state completes the reversal and the close.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// defaultRequestedItems is what the bank asks the customer for when a
// representment is rejected without an explicit item list.
var defaultRequestedItems = []string{
	"Written account of what happened",
	"Any correspondence with the merchant",
	"Proof of the original order or receipt",
}

// RepresentmentRepo defines the repository contract required by
// RepresentmentService.
type RepresentmentRepo interface {
	GetTransactionAny(ctx context.Context, db *gorm.DB, id string) (*domain.Transaction, error)
	UpdateDisputeStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.DisputeStatus, extra map[string]any) error
	UpdateTransactionFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error

	CreateRepresentment(ctx context.Context, db *gorm.DB, transactionID, details string, dueAt *time.Time) (*domain.Representment, error)
	GetActiveRepresentment(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Representment, error)
	UpdateRepresentmentStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.RepresentmentStatus, resolved bool) error

	CreateEvidenceRequest(ctx context.Context, db *gorm.DB, transactionID, representmentID, requestedItems string) (*domain.EvidenceRequest, error)

	GetActiveDispute(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Dispute, error)
	UpdateDisputeStatus(ctx context.Context, db *gorm.DB, id string, status domain.DisputeStatus) error
	AttachDisputeConversation(ctx context.Context, db *gorm.DB, id, conversationID string) error

	GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error)
	TouchConversation(ctx context.Context, db *gorm.DB, id string) error
	CreateMessage(db *gorm.DB, conversationID, role, content string) (*domain.Message, error)

	AppendAction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, action, details, performedBy string) (*domain.ChargebackAction, error)
}

// DetectOutcome reports whether a detection call found new counter-evidence.
type DetectOutcome struct {
	Detected        bool                 `json:"detected"`
	RepresentmentID string               `json:"representment_id,omitempty"`
	NewStatus       domain.DisputeStatus `json:"new_status,omitempty"`
}

// AcceptOutcome is the result of the bank conceding a representment.
type AcceptOutcome struct {
	NewStatus      domain.DisputeStatus `json:"new_status"`
	CreditReversal bool                 `json:"credit_reversal"`
}

// RejectOutcome is the result of the bank rejecting a representment and
// re-opening the customer's case.
type RejectOutcome struct {
	NewStatus         domain.DisputeStatus `json:"new_status"`
	ConversationID    string               `json:"conversation_id"`
	EvidenceRequestID string               `json:"evidence_request_id"`
}

// RepresentmentService resolves merchant counter-evidence.
type RepresentmentService struct {
	DB   *gorm.DB
	Repo RepresentmentRepo

	// TitleLocale is used when casing merchant names for re-opened
	// conversation titles.
	TitleLocale language.Tag
}

// NewRepresentmentService constructs a RepresentmentService.
func NewRepresentmentService(db *gorm.DB, r RepresentmentRepo) *RepresentmentService {
	return &RepresentmentService{DB: db, Repo: r, TitleLocale: language.English}
}

// Detect registers newly arrived merchant counter-evidence for a transaction
// and moves an open dispute to representment_received. When details are
// given and no unresolved representment exists, a new row is created first.
// A call with nothing to detect is a no-op success, not an error.
func (s *RepresentmentService) Detect(ctx context.Context, transactionID, details string, dueAt *time.Time) (*DetectOutcome, error) {
	tr := otel.Tracer("services/RepresentmentService")
	ctx, span := tr.Start(ctx, "RepresentmentService.Detect")
	defer span.End()

	txn, err := s.Repo.GetTransactionAny(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	rep, err := s.Repo.GetActiveRepresentment(ctx, s.DB, transactionID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rep = nil
	case err != nil:
		return nil, err
	case resolvedRepresentment(rep.Status):
		// A resolved row is history; new counter-evidence opens a new row.
		rep = nil
	}

	out := &DetectOutcome{}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rep == nil {
			if strings.TrimSpace(details) == "" {
				return nil
			}
			created, cerr := s.Repo.CreateRepresentment(ctx, tx, transactionID, details, dueAt)
			if cerr != nil {
				return cerr
			}
			rep = created
		}
		if !rep.HasRepresentment {
			return nil
		}

		out.Detected = true
		out.RepresentmentID = rep.ID
		out.NewStatus = txn.DisputeStatus

		if !domain.CanTransition(txn.DisputeStatus, domain.DisputeRepresentmentReceived) {
			// Already past detection (or no open dispute); registering the
			// row is still useful, the status is left alone.
			return nil
		}
		if uerr := s.Repo.UpdateDisputeStatusWhere(ctx, tx, txn.ID,
			domain.DisputeOpen, domain.DisputeRepresentmentReceived,
			map[string]any{"needs_attention": true}); uerr != nil {
			return uerr
		}
		out.NewStatus = domain.DisputeRepresentmentReceived
		s.mirrorDisputeStatus(ctx, tx, txn.ID, domain.DisputeRepresentmentReceived)
		_, aerr := s.Repo.AppendAction(ctx, tx, txn, domain.ActionRepresentmentDetected, details, "system")
		return aerr
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("representment.detected", out.Detected))
	return out, nil
}

// Accept concedes the dispute to the merchant. Valid only from the bank
// decision points (representment_received, evidence_submitted) and from the
// failed-reversal recovery state. Any outstanding temporary credit is
// reversed before the case closes; if that write fails the case is parked in
// accepted_reversal_failed instead of closed and ErrReversalFailed is
// returned.
func (s *RepresentmentService) Accept(ctx context.Context, adminID, transactionID, notes string) (*AcceptOutcome, error) {
	tr := otel.Tracer("services/RepresentmentService")
	ctx, span := tr.Start(ctx, "RepresentmentService.Accept")
	defer span.End()

	txn, err := s.Repo.GetTransactionAny(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if !acceptableFrom(txn.DisputeStatus) {
		return nil, &StateConflictError{Operation: "accept representment", CurrentStatus: string(txn.DisputeStatus)}
	}

	rep, err := s.Repo.GetActiveRepresentment(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepresentmentNotFound
		}
		return nil, err
	}
	if resolvedRepresentment(rep.Status) && txn.DisputeStatus != domain.DisputeAcceptedReversalFailed {
		return nil, &StateConflictError{Operation: "accept representment", CurrentStatus: string(rep.Status)}
	}

	// Reverse the temporary credit first, outside the closing transaction.
	// A failure here must leave an explicit recovery state, not a closed
	// case and not a rolled-back nothing.
	reversed := false
	if txn.TemporaryCreditProvided {
		rerr := s.Repo.UpdateTransactionFields(ctx, s.DB, txn.ID, map[string]any{
			"temporary_credit_provided":    false,
			"temporary_credit_reversal_at": time.Now().UTC(),
		})
		if rerr != nil {
			s.parkReversalFailure(ctx, txn, rerr)
			return nil, ErrReversalFailed
		}
		reversed = true
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uerr := s.Repo.UpdateDisputeStatusWhere(ctx, tx, txn.ID,
			txn.DisputeStatus, domain.DisputeClosedLost,
			map[string]any{"needs_attention": false}); uerr != nil {
			return uerr
		}
		if !resolvedRepresentment(rep.Status) {
			if uerr := s.Repo.UpdateRepresentmentStatusWhere(ctx, tx, rep.ID,
				rep.Status, domain.RepresentmentAcceptedByBank, true); uerr != nil {
				return uerr
			}
		}
		s.mirrorDisputeStatus(ctx, tx, txn.ID, domain.DisputeClosedLost)
		_, aerr := s.Repo.AppendAction(ctx, tx, txn, domain.ActionRepresentmentAccepted, notes, adminID)
		return aerr
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.conflictNow(ctx, "accept representment", txn)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool("credit.reversed", reversed))
	log.Info().
		Str("transaction_id", txn.ID).
		Str("admin_id", adminID).
		Bool("credit_reversal", reversed).
		Msg("representment accepted, dispute closed lost")
	return &AcceptOutcome{NewStatus: domain.DisputeClosedLost, CreditReversal: reversed}, nil
}

// Reject sides with the customer: the representment and the dispute move to
// awaiting_customer_info, an evidence request is opened, and the customer's
// conversation is re-opened (or created) with an injected assistant message
// naming the evidence needed. Valid only from representment_received.
func (s *RepresentmentService) Reject(ctx context.Context, adminID, transactionID, adminNotes string, requestedItems []string) (*RejectOutcome, error) {
	tr := otel.Tracer("services/RepresentmentService")
	ctx, span := tr.Start(ctx, "RepresentmentService.Reject")
	defer span.End()

	txn, err := s.Repo.GetTransactionAny(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if !domain.CanTransition(txn.DisputeStatus, domain.DisputeAwaitingCustomerInfo) {
		return nil, &StateConflictError{Operation: "reject representment", CurrentStatus: string(txn.DisputeStatus)}
	}

	rep, err := s.Repo.GetActiveRepresentment(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepresentmentNotFound
		}
		return nil, err
	}

	if len(requestedItems) == 0 {
		requestedItems = defaultRequestedItems
	}

	out := &RejectOutcome{NewStatus: domain.DisputeAwaitingCustomerInfo}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if uerr := s.Repo.UpdateRepresentmentStatusWhere(ctx, tx, rep.ID,
			rep.Status, domain.RepresentmentAwaitingCustomer, false); uerr != nil {
			return uerr
		}
		if uerr := s.Repo.UpdateDisputeStatusWhere(ctx, tx, txn.ID,
			domain.DisputeRepresentmentReceived, domain.DisputeAwaitingCustomerInfo,
			map[string]any{"needs_attention": true}); uerr != nil {
			return uerr
		}

		req, cerr := s.Repo.CreateEvidenceRequest(ctx, tx, txn.ID, rep.ID, mustJSON(requestedItems))
		if cerr != nil {
			return cerr
		}
		out.EvidenceRequestID = req.ID

		convID, cerr := s.reopenConversation(ctx, tx, txn, requestedItems)
		if cerr != nil {
			return cerr
		}
		out.ConversationID = convID

		_, aerr := s.Repo.AppendAction(ctx, tx, txn, domain.ActionRepresentmentRejected, adminNotes, adminID)
		return aerr
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.conflictNow(ctx, "reject representment", txn)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("conversation.id", out.ConversationID))
	log.Info().
		Str("transaction_id", txn.ID).
		Str("admin_id", adminID).
		Str("conversation_id", out.ConversationID).
		Msg("representment rejected, case re-opened")
	return out, nil
}

// RejectCustomerEvidence records the bank's final ruling against a customer
// rebuttal. Valid only from evidence_submitted. An outstanding temporary
// credit becomes a finalized refund for the merchant and its reversal is
// stamped; the dispute closes as merchant_won.
func (s *RepresentmentService) RejectCustomerEvidence(ctx context.Context, adminID, transactionID, notes string) (*AcceptOutcome, error) {
	tr := otel.Tracer("services/RepresentmentService")
	ctx, span := tr.Start(ctx, "RepresentmentService.RejectCustomerEvidence")
	defer span.End()

	txn, err := s.Repo.GetTransactionAny(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	if !domain.CanTransition(txn.DisputeStatus, domain.DisputeMerchantWon) {
		return nil, &StateConflictError{Operation: "reject customer evidence", CurrentStatus: string(txn.DisputeStatus)}
	}

	rep, err := s.Repo.GetActiveRepresentment(ctx, s.DB, transactionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepresentmentNotFound
		}
		return nil, err
	}

	finalized := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		extra := map[string]any{"needs_attention": false}
		if txn.TemporaryCreditProvided {
			// The credit the customer already holds becomes the merchant's
			// finalized refund on this transaction.
			extra["temporary_credit_provided"] = false
			extra["temporary_credit_reversal_at"] = time.Now().UTC()
			extra["refund_received"] = true
			extra["refund_amount"] = txn.TemporaryCreditAmount
			finalized = true
		}
		if uerr := s.Repo.UpdateDisputeStatusWhere(ctx, tx, txn.ID,
			domain.DisputeEvidenceSubmitted, domain.DisputeMerchantWon, extra); uerr != nil {
			return uerr
		}
		if uerr := s.Repo.UpdateRepresentmentStatusWhere(ctx, tx, rep.ID,
			rep.Status, domain.RepresentmentEvidenceRejected, true); uerr != nil {
			return uerr
		}
		s.mirrorDisputeStatus(ctx, tx, txn.ID, domain.DisputeMerchantWon)
		_, aerr := s.Repo.AppendAction(ctx, tx, txn, domain.ActionCustomerEvidenceRejected, notes, adminID)
		return aerr
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.conflictNow(ctx, "reject customer evidence", txn)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", txn.ID).
		Str("admin_id", adminID).
		Bool("credit_finalized", finalized).
		Msg("customer evidence rejected, merchant won")
	return &AcceptOutcome{NewStatus: domain.DisputeMerchantWon, CreditReversal: finalized}, nil
}

// reopenConversation finds the case conversation through the active dispute,
// creating one when none survives, and injects the assistant message asking
// for the listed evidence.
func (s *RepresentmentService) reopenConversation(ctx context.Context, tx *gorm.DB, txn *domain.Transaction, items []string) (string, error) {
	var convID string
	dispute, derr := s.Repo.GetActiveDispute(ctx, tx, txn.ID)
	if derr != nil && !errors.Is(derr, gorm.ErrRecordNotFound) {
		return "", derr
	}
	if dispute != nil && dispute.ConversationID != "" {
		if _, gerr := s.Repo.GetConversation(ctx, tx, dispute.ConversationID, txn.UserID); gerr == nil {
			convID = dispute.ConversationID
		} else if !errors.Is(gerr, gorm.ErrRecordNotFound) {
			return "", gerr
		}
	}
	if convID == "" {
		title := cases.Title(s.titleLocale()).String(txn.MerchantName) + " dispute"
		conv, cerr := s.Repo.CreateConversation(ctx, tx, txn.UserID, title)
		if cerr != nil {
			return "", cerr
		}
		convID = conv.ID
		if dispute != nil {
			if aerr := s.Repo.AttachDisputeConversation(ctx, tx, dispute.ID, convID); aerr != nil {
				return "", aerr
			}
		}
	} else if terr := s.Repo.TouchConversation(ctx, tx, convID); terr != nil {
		return "", terr
	}

	if _, merr := s.Repo.CreateMessage(tx, convID, "assistant", evidenceRequestMessage(items)); merr != nil {
		return "", merr
	}
	return convID, nil
}

// parkReversalFailure records the failed-reversal recovery state. Best
// effort: the original reversal error is what the caller reports.
func (s *RepresentmentService) parkReversalFailure(ctx context.Context, txn *domain.Transaction, cause error) {
	log.Error().Err(cause).Str("transaction_id", txn.ID).Msg("temporary credit reversal failed")
	if uerr := s.Repo.UpdateDisputeStatusWhere(ctx, s.DB, txn.ID,
		txn.DisputeStatus, domain.DisputeAcceptedReversalFailed,
		map[string]any{"needs_attention": true}); uerr != nil && !errors.Is(uerr, gorm.ErrRecordNotFound) {
		log.Error().Err(uerr).Str("transaction_id", txn.ID).Msg("failed to park reversal failure")
		return
	}
	if _, aerr := s.Repo.AppendAction(ctx, s.DB, txn, domain.ActionCreditReversalFailed, cause.Error(), "system"); aerr != nil {
		log.Error().Err(aerr).Str("transaction_id", txn.ID).Msg("failed to audit reversal failure")
	}
}

// conflictNow re-reads the transaction so the conflict names the status that
// actually won the race.
func (s *RepresentmentService) conflictNow(ctx context.Context, op string, txn *domain.Transaction) error {
	current := string(txn.DisputeStatus)
	if fresh, err := s.Repo.GetTransactionAny(ctx, s.DB, txn.ID); err == nil {
		current = string(fresh.DisputeStatus)
	}
	return &StateConflictError{Operation: op, CurrentStatus: current}
}

// mirrorDisputeStatus keeps the dispute case row aligned with the
// transaction's status. Best effort: a transaction without a case row (e.g.
// seeded externally) is fine.
func (s *RepresentmentService) mirrorDisputeStatus(ctx context.Context, tx *gorm.DB, transactionID string, status domain.DisputeStatus) {
	dispute, err := s.Repo.GetActiveDispute(ctx, tx, transactionID)
	if err != nil {
		return
	}
	if err := s.Repo.UpdateDisputeStatus(ctx, tx, dispute.ID, status); err != nil {
		log.Warn().Err(err).Str("dispute_id", dispute.ID).Msg("dispute case status mirror failed")
	}
}

func (s *RepresentmentService) titleLocale() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// acceptableFrom reports whether an accept may start from this status.
// AcceptableStatuses is derived from the lifecycle table, so this stays in
// step with the transitions the repository will allow.
func acceptableFrom(status domain.DisputeStatus) bool {
	for _, st := range domain.AcceptableStatuses() {
		if st == status {
			return true
		}
	}
	return false
}

func resolvedRepresentment(status domain.RepresentmentStatus) bool {
	return status == domain.RepresentmentAcceptedByBank || status == domain.RepresentmentEvidenceRejected
}

// evidenceRequestMessage renders the injected assistant message naming the
// evidence the bank needs.
func evidenceRequestMessage(items []string) string {
	var b strings.Builder
	b.WriteString("The merchant has contested your dispute. To continue, we need the following from you:\n")
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, it)
	}
	b.WriteString("Please reply here with your account of events and upload any documents you have.")
	return b.String()
}

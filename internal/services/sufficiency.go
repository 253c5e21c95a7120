// Package services – SufficiencyService
//
// This file implements rebuttal sufficiency scoring. The customer's free-text
// note and file list are graded by the classification port against a fixed
// five-criterion rubric, and the verdict is persisted together with the
// lifecycle changes it triggers: the pending evidence request flips to
// submitted, the dispute moves to evidence_submitted where applicable, and
// the transaction is flagged for human review. All writes happen inside one
// database transaction.
//
// Scoring is advisory: a malformed port response degrades to an insufficient
// verdict with a manual-review summary instead of failing the request.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/ai"
	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// sufficiencyCriteria is the fixed rubric every rebuttal is graded against.
// The port is instructed to return sufficient = true when at least three
// criteria are met.
var sufficiencyCriteria = []string{
	"Mentions the merchant name or an order reference",
	"Shows an attempt to resolve the issue with the merchant",
	"Cites a date near the transaction date",
	"Cites an acknowledgment from the merchant",
	"Is clear and legible",
}

// fallbackSummary is the verdict summary used when automatic scoring could
// not produce a structured result.
const fallbackSummary = "Automatic evaluation unavailable; manual review required."

// SufficiencyRepo defines the repository contract required by
// SufficiencyService.
type SufficiencyRepo interface {
	// GetTransaction fetches a transaction ensuring it belongs to the user.
	GetTransaction(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Transaction, error)

	// GetActiveRepresentment returns the latest representment for the
	// transaction.
	GetActiveRepresentment(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Representment, error)

	// GetPendingEvidenceRequest returns the newest pending_upload request.
	GetPendingEvidenceRequest(ctx context.Context, db *gorm.DB, transactionID string) (*domain.EvidenceRequest, error)

	// MarkEvidenceRequestSubmitted flips a pending request to submitted.
	MarkEvidenceRequestSubmitted(ctx context.Context, db *gorm.DB, id string) error

	// CreateCustomerEvidence persists one scored submission.
	CreateCustomerEvidence(ctx context.Context, db *gorm.DB, ev *domain.CustomerEvidence) error

	// UpdateDisputeStatusWhere conditionally transitions the transaction's
	// dispute status.
	UpdateDisputeStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.DisputeStatus, extra map[string]any) error

	// UpdateRepresentmentStatusWhere conditionally transitions a
	// representment's status.
	UpdateRepresentmentStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.RepresentmentStatus, resolved bool) error

	// UpdateTransactionFields applies column updates to a transaction.
	UpdateTransactionFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error

	// AppendAction writes one audit row.
	AppendAction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, action, details, performedBy string) (*domain.ChargebackAction, error)
}

// SufficiencyOutcome is the result of one sufficiency evaluation.
type SufficiencyOutcome struct {
	EvidenceID string                `json:"evidence_id"`
	Evaluation *ai.SufficiencyResult `json:"evaluation"`
}

// SufficiencyService scores customer rebuttals and persists the verdict.
type SufficiencyService struct {
	DB   *gorm.DB
	Repo SufficiencyRepo
	Port ai.Port
}

// NewSufficiencyService constructs a SufficiencyService.
func NewSufficiencyService(db *gorm.DB, r SufficiencyRepo, port ai.Port) *SufficiencyService {
	return &SufficiencyService{DB: db, Repo: r, Port: port}
}

// Evaluate scores one rebuttal and persists it. Returns
// ErrTransactionNotFound for missing or foreign transactions; rate-limit and
// quota failures of the port pass through unwrapped; a malformed port
// response degrades to an insufficient verdict instead of failing.
func (s *SufficiencyService) Evaluate(ctx context.Context, userID, transactionID, note string, fileNames []string) (*SufficiencyOutcome, error) {
	tr := otel.Tracer("services/SufficiencyService")
	ctx, span := tr.Start(ctx, "SufficiencyService.Evaluate")
	defer span.End()

	txn, err := s.Repo.GetTransaction(ctx, s.DB, transactionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	verdict, err := s.score(ctx, txn, note, fileNames)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("evidence.sufficient", verdict.Sufficient))

	ev := &domain.CustomerEvidence{
		TransactionID: txn.ID,
		Note:          note,
		FileNames:     mustJSON(fileNames),
		Sufficient:    verdict.Sufficient,
		Summary:       verdict.Summary,
		Reasons:       mustJSON(verdict.Reasons),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rep, rerr := s.Repo.GetActiveRepresentment(ctx, tx, txn.ID); rerr == nil {
			ev.RepresentmentID = rep.ID
			if rep.Status == domain.RepresentmentAwaitingCustomer {
				if uerr := s.Repo.UpdateRepresentmentStatusWhere(ctx, tx, rep.ID,
					domain.RepresentmentAwaitingCustomer, domain.RepresentmentEvidenceSubmitted, false); uerr != nil {
					return uerr
				}
			}
		} else if !errors.Is(rerr, gorm.ErrRecordNotFound) {
			return rerr
		}

		if req, rerr := s.Repo.GetPendingEvidenceRequest(ctx, tx, txn.ID); rerr == nil {
			ev.EvidenceRequestID = req.ID
			if uerr := s.Repo.MarkEvidenceRequestSubmitted(ctx, tx, req.ID); uerr != nil {
				return uerr
			}
		} else if !errors.Is(rerr, gorm.ErrRecordNotFound) {
			return rerr
		}

		if cerr := s.Repo.CreateCustomerEvidence(ctx, tx, ev); cerr != nil {
			return cerr
		}

		// The dispute only advances when it actually waits on the customer;
		// an unsolicited submission still queues a reviewer.
		serr := s.Repo.UpdateDisputeStatusWhere(ctx, tx, txn.ID,
			domain.DisputeAwaitingCustomerInfo, domain.DisputeEvidenceSubmitted,
			map[string]any{"needs_attention": true})
		if errors.Is(serr, gorm.ErrRecordNotFound) {
			serr = s.Repo.UpdateTransactionFields(ctx, tx, txn.ID, map[string]any{"needs_attention": true})
		}
		if serr != nil {
			return serr
		}

		_, aerr := s.Repo.AppendAction(ctx, tx, txn, domain.ActionCustomerEvidenceScored, verdict.Summary, userID)
		return aerr
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction_id", txn.ID).
		Str("evidence_id", ev.ID).
		Bool("sufficient", verdict.Sufficient).
		Msg("customer evidence scored")

	return &SufficiencyOutcome{EvidenceID: ev.ID, Evaluation: verdict}, nil
}

// score calls the port and applies the manual-review fallback for malformed
// results. Rate-limit and quota failures are real failures and propagate.
func (s *SufficiencyService) score(ctx context.Context, txn *domain.Transaction, note string, fileNames []string) (*ai.SufficiencyResult, error) {
	verdict, err := s.Port.ScoreEvidence(ctx, ai.SufficiencyRequest{
		Transaction: ai.TransactionContext{
			MerchantName: txn.MerchantName,
			Amount:       FormatAmount(txn.Amount, txn.Currency),
			Date:         txn.TransactionAt.Format("2006-01-02"),
		},
		Note:      note,
		FileNames: fileNames,
		Criteria:  sufficiencyCriteria,
	})
	if errors.Is(err, ai.ErrMalformedResponse) {
		log.Warn().Str("transaction_id", txn.ID).Msg("sufficiency scoring degraded to manual review")
		return &ai.SufficiencyResult{
			Sufficient: false,
			Reasons:    []string{"automatic evaluation did not return a usable verdict"},
			Summary:    fallbackSummary,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return verdict, nil
}

// mustJSON encodes a string slice for a JSON text column. Encoding a string
// slice cannot fail; nil encodes as an empty array.
func mustJSON(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

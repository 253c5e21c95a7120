// Package services – DisputeService
//
// This file ties the eligibility rule engine to persistence: the check loads
// the cardholder's transaction, evaluates the rules, and appends an audit row
// recording the verdict. It also serves the paginated read surface over the
// append-only audit trail.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
	"github.com/tbourn/go-dispute-backend/internal/utils"
)

// DisputeRepo defines the repository contract required by DisputeService.
type DisputeRepo interface {
	GetTransaction(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Transaction, error)
	GetTransactionAny(ctx context.Context, db *gorm.DB, id string) (*domain.Transaction, error)
	AppendAction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, action, details, performedBy string) (*domain.ChargebackAction, error)
	CountActions(ctx context.Context, db *gorm.DB, transactionID string) (int64, error)
	ListActionsPage(ctx context.Context, db *gorm.DB, transactionID string, offset, limit int) ([]domain.ChargebackAction, error)
}

// AuditPage is one page of a transaction's audit trail, newest first.
type AuditPage struct {
	Items   []domain.ChargebackAction `json:"items"`
	Page    int                       `json:"page"`
	PerPage int                       `json:"per_page"`
	Total   int64                     `json:"total"`
}

// DisputeService performs the persisted dispute operations around the
// eligibility rule engine and the audit trail.
type DisputeService struct {
	DB    *gorm.DB
	Repo  DisputeRepo
	Rules *EligibilityService
}

// NewDisputeService constructs a DisputeService.
func NewDisputeService(db *gorm.DB, r DisputeRepo, rules *EligibilityService) *DisputeService {
	return &DisputeService{DB: db, Repo: r, Rules: rules}
}

// CheckEligibility evaluates the rule set for one of the user's transactions
// and records the verdict in the audit trail. Returns ErrTransactionNotFound
// for missing or foreign transactions.
func (s *DisputeService) CheckEligibility(ctx context.Context, userID, transactionID string) (*EligibilityResult, error) {
	tr := otel.Tracer("services/DisputeService")
	ctx, span := tr.Start(ctx, "DisputeService.CheckEligibility")
	defer span.End()

	txn, err := s.Repo.GetTransaction(ctx, s.DB, transactionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	res := s.Rules.Evaluate(txn)
	span.SetAttributes(attribute.String("eligibility.status", res.Status))

	// The verdict itself is worth auditing even though it mutates nothing:
	// compliance wants to know what the customer was told and when.
	if _, aerr := s.Repo.AppendAction(ctx, s.DB, txn, domain.ActionEligibilityChecked, res.Status, userID); aerr != nil {
		return nil, aerr
	}
	return res, nil
}

// AuditTrail returns one page of a transaction's audit rows, newest first.
// page is 1-based; perPage is clamped to [1, 100].
func (s *DisputeService) AuditTrail(ctx context.Context, transactionID string, page, perPage int) (*AuditPage, error) {
	if _, err := s.Repo.GetTransactionAny(ctx, s.DB, transactionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	page, perPage = utils.ClampPage(page, perPage, 20, 100)

	total, err := s.Repo.CountActions(ctx, s.DB, transactionID)
	if err != nil {
		return nil, err
	}
	items, err := s.Repo.ListActionsPage(ctx, s.DB, transactionID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ChargebackAction{}
	}
	return &AuditPage{Items: items, Page: page, PerPage: perPage, Total: total}, nil
}

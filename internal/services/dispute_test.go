package services

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// ----- Fake repo -----

type fakeDisputeRepo struct {
	getTxn *domain.Transaction
	getErr error

	getAnyTxn *domain.Transaction
	getAnyErr error

	appendAction      string
	appendDetails     string
	appendPerformedBy string
	appendErr         error

	countTotal int64
	countErr   error

	pageOffset int
	pageLimit  int
	pageItems  []domain.ChargebackAction
	pageErr    error
}

func (r *fakeDisputeRepo) GetTransaction(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Transaction, error) {
	return r.getTxn, r.getErr
}

func (r *fakeDisputeRepo) GetTransactionAny(ctx context.Context, db *gorm.DB, id string) (*domain.Transaction, error) {
	return r.getAnyTxn, r.getAnyErr
}

func (r *fakeDisputeRepo) AppendAction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, action, details, performedBy string) (*domain.ChargebackAction, error) {
	r.appendAction, r.appendDetails, r.appendPerformedBy = action, details, performedBy
	return &domain.ChargebackAction{ID: "a1", TransactionID: txn.ID, Action: action}, r.appendErr
}

func (r *fakeDisputeRepo) CountActions(ctx context.Context, db *gorm.DB, transactionID string) (int64, error) {
	return r.countTotal, r.countErr
}

func (r *fakeDisputeRepo) ListActionsPage(ctx context.Context, db *gorm.DB, transactionID string, offset, limit int) ([]domain.ChargebackAction, error) {
	r.pageOffset, r.pageLimit = offset, limit
	return r.pageItems, r.pageErr
}

func newDisputeService(r DisputeRepo) *DisputeService {
	return NewDisputeService(nil, r, newEligibility())
}

// ----- CheckEligibility -----

func TestCheckEligibility_NotFound(t *testing.T) {
	r := &fakeDisputeRepo{getErr: gorm.ErrRecordNotFound}
	s := newDisputeService(r)
	_, err := s.CheckEligibility(context.Background(), "u1", "t-missing")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestCheckEligibility_AuditsVerdict(t *testing.T) {
	r := &fakeDisputeRepo{getTxn: &domain.Transaction{ID: "t1", Amount: 50, Settled: true}}
	s := newDisputeService(r)

	res, err := s.CheckEligibility(context.Background(), "u1", "t1")
	if err != nil {
		t.Fatalf("CheckEligibility error: %v", err)
	}
	if !res.Eligible() {
		t.Fatalf("expected eligible, got %v", res.Status)
	}
	if r.appendAction != domain.ActionEligibilityChecked {
		t.Fatalf("audit action = %q", r.appendAction)
	}
	if r.appendDetails != StatusEligible {
		t.Fatalf("audit details = %q; want verdict status", r.appendDetails)
	}
	if r.appendPerformedBy != "u1" {
		t.Fatalf("audit performed_by = %q", r.appendPerformedBy)
	}
}

func TestCheckEligibility_AuditFailureFailsCheck(t *testing.T) {
	sentinel := errors.New("audit write failed")
	r := &fakeDisputeRepo{
		getTxn:    &domain.Transaction{ID: "t1", Amount: 50, Settled: true},
		appendErr: sentinel,
	}
	s := newDisputeService(r)
	_, err := s.CheckEligibility(context.Background(), "u1", "t1")
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected audit error to propagate, got %v", err)
	}
}

// ----- AuditTrail -----

func TestAuditTrail_NotFound(t *testing.T) {
	r := &fakeDisputeRepo{getAnyErr: gorm.ErrRecordNotFound}
	s := newDisputeService(r)
	_, err := s.AuditTrail(context.Background(), "t-missing", 1, 20)
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestAuditTrail_ClampsPaging(t *testing.T) {
	r := &fakeDisputeRepo{
		getAnyTxn:  &domain.Transaction{ID: "t1"},
		countTotal: 5,
	}
	s := newDisputeService(r)

	page, err := s.AuditTrail(context.Background(), "t1", -3, 0)
	if err != nil {
		t.Fatalf("AuditTrail error: %v", err)
	}
	if page.Page != 1 || page.PerPage != 20 {
		t.Fatalf("page/perPage = %d/%d; want 1/20", page.Page, page.PerPage)
	}
	if r.pageOffset != 0 || r.pageLimit != 20 {
		t.Fatalf("offset/limit = %d/%d; want 0/20", r.pageOffset, r.pageLimit)
	}

	page, err = s.AuditTrail(context.Background(), "t1", 3, 500)
	if err != nil {
		t.Fatalf("AuditTrail error: %v", err)
	}
	if page.PerPage != 100 {
		t.Fatalf("perPage = %d; want clamp to 100", page.PerPage)
	}
	if r.pageOffset != 200 {
		t.Fatalf("offset = %d; want 200", r.pageOffset)
	}
}

func TestAuditTrail_NilItemsBecomeEmptySlice(t *testing.T) {
	r := &fakeDisputeRepo{
		getAnyTxn:  &domain.Transaction{ID: "t1"},
		countTotal: 0,
		pageItems:  nil,
	}
	s := newDisputeService(r)

	page, err := s.AuditTrail(context.Background(), "t1", 1, 20)
	if err != nil {
		t.Fatalf("AuditTrail error: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Fatalf("expected non-nil empty items, got %#v", page.Items)
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
	"github.com/tbourn/go-dispute-backend/internal/repo"
)

// ----- Fake repo -----

type fakeDeletionRepo struct {
	conv    *domain.Conversation
	convErr error

	disputes []domain.Dispute

	deletedMessagesConv string
	deletedEvidenceTxns []string
	deletedDisputes     []string
	deletedConvID       string
	deleteConvErr       error

	ledger      *domain.Idempotency
	ledgerErr   error
	ledgerCalls int
	lateLedger  *domain.Idempotency // served from the second ledger read on

	createdKey       string
	createdOp        string
	createdPayload   string
	createdStatus    int
	createdTTL       time.Duration
	createErr        error
	ledgerAfterWrite *domain.Idempotency
}

func (r *fakeDeletionRepo) GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	if r.conv == nil && r.convErr == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.conv, r.convErr
}

func (r *fakeDeletionRepo) ListDisputesByConversation(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Dispute, error) {
	return r.disputes, nil
}

func (r *fakeDeletionRepo) DeleteMessagesByConversation(ctx context.Context, db *gorm.DB, conversationID string) error {
	r.deletedMessagesConv = conversationID
	return nil
}

func (r *fakeDeletionRepo) DeleteEvidenceByTransaction(ctx context.Context, db *gorm.DB, transactionID string) error {
	r.deletedEvidenceTxns = append(r.deletedEvidenceTxns, transactionID)
	return nil
}

func (r *fakeDeletionRepo) DeleteDispute(ctx context.Context, db *gorm.DB, id string) error {
	r.deletedDisputes = append(r.deletedDisputes, id)
	return nil
}

func (r *fakeDeletionRepo) DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error {
	if r.deleteConvErr != nil {
		return r.deleteConvErr
	}
	r.deletedConvID = id
	return nil
}

func (r *fakeDeletionRepo) GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	r.ledgerCalls++
	if r.ledgerAfterWrite != nil && r.createdKey != "" {
		return r.ledgerAfterWrite, nil
	}
	if r.lateLedger != nil && r.ledgerCalls > 1 {
		return r.lateLedger, nil
	}
	if r.ledger == nil && r.ledgerErr == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.ledger, r.ledgerErr
}

func (r *fakeDeletionRepo) CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, operation, resultJSON string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	r.createdKey, r.createdOp, r.createdPayload, r.createdStatus, r.createdTTL = key, operation, resultJSON, status, ttl
	if r.createErr != nil {
		return nil, r.createErr
	}
	return &domain.Idempotency{UserID: userID, Key: key, Operation: operation, ResultJSON: resultJSON, Status: status}, nil
}

// ----- Tests -----

func TestDelete_ReplaysExistingKey(t *testing.T) {
	db := newSvcDB(t)
	stored := DeleteResult{OK: true, ConversationID: "c1", IdempotencyKey: "k1"}
	payload, _ := json.Marshal(stored)
	r := &fakeDeletionRepo{ledger: &domain.Idempotency{ResultJSON: string(payload), Status: 200}}
	s := NewDeletionService(db, r)

	out, err := s.Delete(context.Background(), "u1", "c1", "k1")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !out.FromCache {
		t.Fatalf("expected cache replay")
	}
	if out.ConversationID != "c1" || !out.OK {
		t.Fatalf("replayed result = %#v", out)
	}
	if r.deletedConvID != "" {
		t.Fatalf("replay must not touch rows")
	}
}

func TestDelete_ConversationNotFound(t *testing.T) {
	db := newSvcDB(t)
	s := NewDeletionService(db, &fakeDeletionRepo{})
	if _, err := s.Delete(context.Background(), "u1", "c-missing", "k1"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestDelete_CascadesAndRecordsKey(t *testing.T) {
	db := newSvcDB(t)
	r := &fakeDeletionRepo{
		conv: &domain.Conversation{ID: "c1", UserID: "u1"},
		disputes: []domain.Dispute{
			{ID: "d1", TransactionID: "t1"},
			{ID: "d2", TransactionID: "t2"},
		},
	}
	s := NewDeletionService(db, r)

	out, err := s.Delete(context.Background(), "u1", "c1", "key-123")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !out.OK || out.FromCache {
		t.Fatalf("result = %#v", out)
	}
	if out.IdempotencyKey != "key-123" {
		t.Fatalf("key = %q", out.IdempotencyKey)
	}

	if r.deletedMessagesConv != "c1" || r.deletedConvID != "c1" {
		t.Fatalf("cascade incomplete: messages=%q conv=%q", r.deletedMessagesConv, r.deletedConvID)
	}
	if len(r.deletedEvidenceTxns) != 2 || len(r.deletedDisputes) != 2 {
		t.Fatalf("dispute cascade = %v / %v", r.deletedEvidenceTxns, r.deletedDisputes)
	}

	// The ledger entry is written last, with the exact payload.
	if r.createdKey != "key-123" || r.createdOp != deleteOperation || r.createdStatus != 200 {
		t.Fatalf("ledger = key %q op %q status %d", r.createdKey, r.createdOp, r.createdStatus)
	}
	if r.createdTTL != 24*time.Hour {
		t.Fatalf("ttl = %v", r.createdTTL)
	}
	var stored DeleteResult
	if err := json.Unmarshal([]byte(r.createdPayload), &stored); err != nil {
		t.Fatalf("stored payload not JSON: %v", err)
	}
	if stored.ConversationID != "c1" || !stored.OK {
		t.Fatalf("stored payload = %#v", stored)
	}
}

func TestDelete_LostCascadeRaceReplaysWinner(t *testing.T) {
	db := newSvcDB(t)
	winner := DeleteResult{OK: true, ConversationID: "c1", IdempotencyKey: "k1"}
	payload, _ := json.Marshal(winner)
	// The cascade hits rows a same-key request already deleted; by the time
	// the loser re-checks, the winner's ledger entry exists.
	r := &fakeDeletionRepo{
		conv:          &domain.Conversation{ID: "c1", UserID: "u1"},
		deleteConvErr: gorm.ErrRecordNotFound,
		lateLedger:    &domain.Idempotency{ResultJSON: string(payload), Status: 200},
	}
	s := NewDeletionService(db, r)

	out, err := s.Delete(context.Background(), "u1", "c1", "k1")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !out.FromCache || out.ConversationID != "c1" {
		t.Fatalf("expected winner replay, got %#v", out)
	}
	if r.createdKey != "" {
		t.Fatalf("loser must not write its own ledger entry")
	}
}

func TestDelete_VanishedConversationReplaysWinner(t *testing.T) {
	db := newSvcDB(t)
	winner := DeleteResult{OK: true, ConversationID: "c1", IdempotencyKey: "k1"}
	payload, _ := json.Marshal(winner)
	// No conversation row and a ledger entry that lands between the pre-check
	// and the fetch: the stored result wins over a not-found.
	r := &fakeDeletionRepo{
		lateLedger: &domain.Idempotency{ResultJSON: string(payload), Status: 200},
	}
	s := NewDeletionService(db, r)

	out, err := s.Delete(context.Background(), "u1", "c1", "k1")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !out.FromCache {
		t.Fatalf("expected winner replay, got %#v", out)
	}
}

func TestDelete_DuplicateKeyRaceReplaysWinner(t *testing.T) {
	db := newSvcDB(t)
	winner := DeleteResult{OK: true, ConversationID: "c1", IdempotencyKey: "k1"}
	payload, _ := json.Marshal(winner)
	r := &fakeDeletionRepo{
		conv:             &domain.Conversation{ID: "c1", UserID: "u1"},
		createErr:        repo.ErrDuplicate,
		ledgerAfterWrite: &domain.Idempotency{ResultJSON: string(payload), Status: 200},
	}
	s := NewDeletionService(db, r)

	out, err := s.Delete(context.Background(), "u1", "c1", "k1")
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !out.FromCache {
		t.Fatalf("expected winner replay, got %#v", out)
	}
}

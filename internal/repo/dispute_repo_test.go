package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

func TestGetActiveDispute_SkipsTerminalCases(t *testing.T) {
	db := newTestDB(t)
	seedTransaction(t, db, "t1", "u1", domain.DisputeOpen)

	closed := &domain.Dispute{
		ID: "d-old", TransactionID: "t1", UserID: "u1",
		Status:    domain.DisputeClosedLost,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	if err := db.Create(closed).Error; err != nil {
		t.Fatalf("seed closed case: %v", err)
	}

	open, err := CreateDispute(context.Background(), db, "t1", "u1", "c1", "not_received", "never arrived", domain.DisputeOpen)
	if err != nil {
		t.Fatalf("CreateDispute: %v", err)
	}

	active, err := GetActiveDispute(context.Background(), db, "t1")
	if err != nil {
		t.Fatalf("GetActiveDispute: %v", err)
	}
	if active.ID != open.ID {
		t.Fatalf("active = %q; want the open case", active.ID)
	}
}

func TestGetActiveDispute_NoneLeft(t *testing.T) {
	db := newTestDB(t)
	seedTransaction(t, db, "t1", "u1", domain.DisputeMerchantWon)
	if err := db.Create(&domain.Dispute{ID: "d1", TransactionID: "t1", UserID: "u1", Status: domain.DisputeMerchantWon}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := GetActiveDispute(context.Background(), db, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDisputeStatusAndAttachConversation(t *testing.T) {
	db := newTestDB(t)
	seedTransaction(t, db, "t1", "u1", domain.DisputeOpen)
	d, err := CreateDispute(context.Background(), db, "t1", "u1", "", "fraud", "not mine", domain.DisputeOpen)
	if err != nil {
		t.Fatalf("CreateDispute: %v", err)
	}

	if err := UpdateDisputeStatus(context.Background(), db, d.ID, domain.DisputeRepresentmentReceived); err != nil {
		t.Fatalf("UpdateDisputeStatus: %v", err)
	}
	if err := AttachDisputeConversation(context.Background(), db, d.ID, "c9"); err != nil {
		t.Fatalf("AttachDisputeConversation: %v", err)
	}

	var got domain.Dispute
	if err := db.First(&got, "id = ?", d.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.DisputeRepresentmentReceived || got.ConversationID != "c9" {
		t.Fatalf("row = %q conv=%q", got.Status, got.ConversationID)
	}

	if err := UpdateDisputeStatus(context.Background(), db, "missing", domain.DisputeOpen); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := AttachDisputeConversation(context.Background(), db, "missing", "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListDisputesByConversation_AndDelete(t *testing.T) {
	db := newTestDB(t)
	seedTransaction(t, db, "t1", "u1", domain.DisputeOpen)
	seedTransaction(t, db, "t2", "u1", domain.DisputeOpen)

	d1, _ := CreateDispute(context.Background(), db, "t1", "u1", "c1", "fraud", "", domain.DisputeOpen)
	d2, _ := CreateDispute(context.Background(), db, "t2", "u1", "c1", "duplicate", "", domain.DisputeOpen)

	list, err := ListDisputesByConversation(context.Background(), db, "c1")
	if err != nil {
		t.Fatalf("ListDisputesByConversation: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(list))
	}

	if err := DeleteDispute(context.Background(), db, d1.ID); err != nil {
		t.Fatalf("DeleteDispute: %v", err)
	}
	list, _ = ListDisputesByConversation(context.Background(), db, "c1")
	if len(list) != 1 || list[0].ID != d2.ID {
		t.Fatalf("remaining cases = %v", list)
	}
}

package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

func TestConversationCRUD(t *testing.T) {
	db := newTestDB(t)

	conv, err := CreateConversation(context.Background(), db, "u1", "Acme Store dispute")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	got, err := GetConversation(context.Background(), db, conv.ID, "u1")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.Title != "Acme Store dispute" {
		t.Fatalf("title = %q", got.Title)
	}

	// Ownership scoping.
	if _, err := GetConversation(context.Background(), db, conv.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}

func TestTouchConversation(t *testing.T) {
	db := newTestDB(t)
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	// Push UpdatedAt into the past, then touch.
	past := time.Now().UTC().Add(-time.Hour)
	db.Model(&domain.Conversation{}).Where("id = ?", conv.ID).Update("updated_at", past)

	if err := TouchConversation(context.Background(), db, conv.ID); err != nil {
		t.Fatalf("TouchConversation: %v", err)
	}
	var got domain.Conversation
	db.First(&got, "id = ?", conv.ID)
	if !got.UpdatedAt.After(past) {
		t.Fatalf("UpdatedAt not bumped: %v", got.UpdatedAt)
	}

	if err := TouchConversation(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessagesOrderAndCascadeDelete(t *testing.T) {
	db := newTestDB(t)
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	if _, err := CreateMessage(db, conv.ID, "assistant", "What happened?"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := CreateMessage(db, conv.ID, "user", "Never got my order"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	msgs, err := ListMessages(db, conv.ID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "assistant" || msgs[1].Role != "user" {
		t.Fatalf("messages = %v", msgs)
	}
	if n, _ := CountMessages(db, conv.ID); n != 2 {
		t.Fatalf("count = %d", n)
	}

	if err := DeleteMessagesByConversation(context.Background(), db, conv.ID); err != nil {
		t.Fatalf("DeleteMessagesByConversation: %v", err)
	}
	if n, _ := CountMessages(db, conv.ID); n != 0 {
		t.Fatalf("count after delete = %d", n)
	}

	if err := DeleteConversation(context.Background(), db, conv.ID, "u1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if err := DeleteConversation(context.Background(), db, conv.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestDeleteConversation_OwnerScoped(t *testing.T) {
	db := newTestDB(t)
	conv, _ := CreateConversation(context.Background(), db, "u1", "t")

	if err := DeleteConversation(context.Background(), db, conv.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, err := GetConversation(context.Background(), db, conv.ID, "u1"); err != nil {
		t.Fatalf("conversation should survive a foreign delete: %v", err)
	}
}

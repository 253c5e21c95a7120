package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotency_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()

	rec, err := CreateIdempotency(context.Background(), db, "u1", "k1", "conversation_delete", `{"ok":true}`, 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.ExpiresAt.Before(now) {
		t.Fatalf("record = %#v", rec)
	}

	got, err := GetIdempotency(context.Background(), db, "u1", "k1", now)
	if err != nil {
		t.Fatalf("GetIdempotency: %v", err)
	}
	if got.ResultJSON != `{"ok":true}` || got.Status != 200 {
		t.Fatalf("record = %#v", got)
	}
}

func TestIdempotency_ScopedByUser(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().UTC()
	if _, err := CreateIdempotency(context.Background(), db, "u1", "k1", "op", "{}", 200, time.Hour); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if _, err := GetIdempotency(context.Background(), db, "u2", "k1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}

	// The same key under another user is a fresh insert, not a duplicate.
	if _, err := CreateIdempotency(context.Background(), db, "u2", "k1", "op", "{}", 200, time.Hour); err != nil {
		t.Fatalf("CreateIdempotency for other user: %v", err)
	}
}

func TestIdempotency_Duplicate(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateIdempotency(context.Background(), db, "u1", "k1", "op", "{}", 200, time.Hour); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := CreateIdempotency(context.Background(), db, "u1", "k1", "op", `{"other":1}`, 200, time.Hour)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_Expiry(t *testing.T) {
	db := newTestDB(t)
	if _, err := CreateIdempotency(context.Background(), db, "u1", "k1", "op", "{}", 200, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Read as of a time past the TTL.
	later := time.Now().UTC().Add(2 * time.Minute)
	if _, err := GetIdempotency(context.Background(), db, "u1", "k1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestIdempotency_BlankKey(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetIdempotency(context.Background(), db, "u1", "   ", time.Now().UTC()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank key, got %v", err)
	}
}

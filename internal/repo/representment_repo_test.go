package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

func TestCreateAndGetActiveRepresentment(t *testing.T) {
	db := newTestDB(t)
	seedTransaction(t, db, "t1", "u1", domain.DisputeOpen)

	due := time.Now().UTC().Add(7 * 24 * time.Hour)
	first, err := CreateRepresentment(context.Background(), db, "t1", "merchant claims delivery", &due)
	if err != nil {
		t.Fatalf("CreateRepresentment: %v", err)
	}
	if !first.HasRepresentment || first.Status != domain.RepresentmentReceived {
		t.Fatalf("row = %#v", first)
	}

	// A later row becomes the active one.
	later := &domain.Representment{
		ID: "r2", TransactionID: "t1", HasRepresentment: true,
		Status:    domain.RepresentmentReceived,
		CreatedAt: first.CreatedAt.Add(time.Hour),
	}
	if err := db.Create(later).Error; err != nil {
		t.Fatalf("seed second row: %v", err)
	}

	active, err := GetActiveRepresentment(context.Background(), db, "t1")
	if err != nil {
		t.Fatalf("GetActiveRepresentment: %v", err)
	}
	if active.ID != "r2" {
		t.Fatalf("active = %q; want newest", active.ID)
	}

	if _, err := GetActiveRepresentment(context.Background(), db, "none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRepresentmentStatusWhere(t *testing.T) {
	db := newTestDB(t)
	seedTransaction(t, db, "t1", "u1", domain.DisputeRepresentmentReceived)
	rep, err := CreateRepresentment(context.Background(), db, "t1", "details", nil)
	if err != nil {
		t.Fatalf("CreateRepresentment: %v", err)
	}

	err = UpdateRepresentmentStatusWhere(context.Background(), db, rep.ID,
		domain.RepresentmentReceived, domain.RepresentmentAcceptedByBank, true)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}

	var got domain.Representment
	if err := db.First(&got, "id = ?", rep.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != domain.RepresentmentAcceptedByBank || got.ResolvedAt == nil {
		t.Fatalf("row = %q resolved=%v", got.Status, got.ResolvedAt)
	}

	// Guard status moved; the same write loses.
	err = UpdateRepresentmentStatusWhere(context.Background(), db, rep.ID,
		domain.RepresentmentReceived, domain.RepresentmentAwaitingCustomer, false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for lost race, got %v", err)
	}
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// EvidenceRequest and CustomerEvidence models.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// CreateEvidenceRequest opens a pending_upload request for more customer
// evidence. requestedItems is a JSON-encoded array of item names.
func CreateEvidenceRequest(ctx context.Context, db *gorm.DB, transactionID, representmentID, requestedItems string) (*domain.EvidenceRequest, error) {
	r := &domain.EvidenceRequest{
		ID:              uuid.NewString(),
		TransactionID:   transactionID,
		RepresentmentID: representmentID,
		RequestedItems:  requestedItems,
		Status:          domain.EvidenceRequestPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetPendingEvidenceRequest returns the newest pending_upload request for a
// transaction, or ErrNotFound.
func GetPendingEvidenceRequest(ctx context.Context, db *gorm.DB, transactionID string) (*domain.EvidenceRequest, error) {
	var r domain.EvidenceRequest
	err := db.WithContext(ctx).
		Where("transaction_id = ? AND status = ?", transactionID, domain.EvidenceRequestPending).
		Order("created_at desc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkEvidenceRequestSubmitted flips a pending request to submitted. The
// update is conditional on the pending state so a double submission does not
// silently succeed twice. Returns ErrNotFound when no row matched.
func MarkEvidenceRequestSubmitted(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.EvidenceRequest{}).
		Where("id = ? AND status = ?", id, domain.EvidenceRequestPending).
		Update("status", domain.EvidenceRequestSubmitted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateCustomerEvidence persists one scored rebuttal submission.
func CreateCustomerEvidence(ctx context.Context, db *gorm.DB, ev *domain.CustomerEvidence) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(ev).Error
}

// DeleteEvidenceByTransaction removes all evidence rows for a transaction.
// Used by the deletion cascade; must run inside the caller's transaction.
func DeleteEvidenceByTransaction(ctx context.Context, db *gorm.DB, transactionID string) error {
	if err := db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&domain.CustomerEvidence{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&domain.EvidenceRequest{}).Error
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Transaction
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a transaction is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// The dispute-status writes use conditional updates (WHERE dispute_status
// matches the expected current value) so concurrent resolver calls cannot
// both win a transition: the loser observes RowsAffected == 0 and surfaces a
// state conflict instead of silently double-applying.
package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrIllegalTransition is returned when a dispute-status write names a move
// the lifecycle table does not allow. It indicates a programming error in the
// caller, not a lost race.
var ErrIllegalTransition = errors.New("illegal dispute status transition")

// GetTransaction fetches a transaction by its ID and owner (userID). If the
// record does not exist, it returns ErrNotFound.
func GetTransaction(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTransactionAny fetches a transaction by ID regardless of owner. Used by
// bank-administrator flows where the operator is not the cardholder.
func GetTransactionAny(ctx context.Context, db *gorm.DB, id string) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateDisputeStatusWhere transitions a transaction's dispute status with a
// conditional update: the write applies only when the current status equals
// from. The move must be present in the lifecycle table (re-asserting the
// current status is allowed; it is how a failed reversal is re-parked on
// retry). extra columns are applied in the same statement. Returns
// ErrNotFound when no row matched (either the transaction is missing or its
// status moved concurrently); callers translate that into a state conflict.
func UpdateDisputeStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.DisputeStatus, extra map[string]any) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %q is terminal", ErrIllegalTransition, from)
	}
	if from != to && !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: %q -> %q", ErrIllegalTransition, from, to)
	}

	updates := map[string]any{"dispute_status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ? AND dispute_status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTransactionFields applies arbitrary column updates to one
// transaction. Returns ErrNotFound when the row does not exist.
func UpdateTransactionFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

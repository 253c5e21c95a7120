// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Representment model.
//
// A transaction may accumulate several representment rows over a long case;
// only the latest by creation time is active. Status writes are conditional
// (WHERE status matches) so two concurrent resolver calls cannot both win.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// CreateRepresentment inserts a merchant counter-evidence row.
func CreateRepresentment(ctx context.Context, db *gorm.DB, transactionID, details string, dueAt *time.Time) (*domain.Representment, error) {
	r := &domain.Representment{
		ID:               uuid.NewString(),
		TransactionID:    transactionID,
		HasRepresentment: true,
		Details:          details,
		DueAt:            dueAt,
		Status:           domain.RepresentmentReceived,
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetActiveRepresentment returns the latest representment for a transaction
// (by creation time), or ErrNotFound when none exists.
func GetActiveRepresentment(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Representment, error) {
	var r domain.Representment
	err := db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at desc").
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRepresentmentStatusWhere transitions a representment's status with a
// conditional update that applies only when the current status equals from.
// resolved stamps ResolvedAt for terminal states. Returns ErrNotFound when
// no row matched.
func UpdateRepresentmentStatusWhere(ctx context.Context, db *gorm.DB, id string, from, to domain.RepresentmentStatus, resolved bool) error {
	updates := map[string]any{"status": to}
	if resolved {
		updates["resolved_at"] = time.Now().UTC()
	}
	res := db.WithContext(ctx).
		Model(&domain.Representment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the append-only
// ChargebackAction audit log. Rows are write-once: there are deliberately no
// update or delete helpers here.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// AppendAction writes one audit row for a state-changing decision, copying
// the compliance snapshot (timing, security indicator, entry mode, wallet)
// from the transaction at decision time.
func AppendAction(ctx context.Context, db *gorm.DB, txn *domain.Transaction, action, details, performedBy string) (*domain.ChargebackAction, error) {
	a := &domain.ChargebackAction{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		Action:        action,
		Details:       details,
		PerformedBy:   performedBy,

		TransactionAt:     txn.TransactionAt,
		SettledAt:         txn.SettledAt,
		SecuredIndication: txn.SecuredIndication,
		PosEntryMode:      txn.PosEntryMode,
		WalletType:        txn.WalletType,

		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// CountActions returns the number of audit rows for a transaction.
func CountActions(ctx context.Context, db *gorm.DB, transactionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChargebackAction{}).
		Where("transaction_id = ?", transactionID).
		Count(&total).Error
	return total, err
}

// ListActionsPage returns a page of audit rows for a transaction, newest
// first. The caller computes offset and limit.
func ListActionsPage(ctx context.Context, db *gorm.DB, transactionID string, offset, limit int) ([]domain.ChargebackAction, error) {
	var out []domain.ChargebackAction
	err := db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

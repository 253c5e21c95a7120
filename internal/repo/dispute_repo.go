// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Dispute
// model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// CreateDispute inserts a new dispute case for a transaction.
func CreateDispute(ctx context.Context, db *gorm.DB, transactionID, userID, conversationID, category, reason string, status domain.DisputeStatus) (*domain.Dispute, error) {
	d := &domain.Dispute{
		ID:             uuid.NewString(),
		TransactionID:  transactionID,
		UserID:         userID,
		ConversationID: conversationID,
		Category:       category,
		Reason:         reason,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

// GetActiveDispute returns the newest non-terminal dispute for a
// transaction, or ErrNotFound.
func GetActiveDispute(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Dispute, error) {
	var d domain.Dispute
	err := db.WithContext(ctx).
		Where("transaction_id = ? AND status NOT IN ?", transactionID, []domain.DisputeStatus{
			domain.DisputeClosedLost,
			domain.DisputeClosedWon,
			domain.DisputeMerchantWon,
		}).
		Order("created_at desc").
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateDisputeStatus sets the status of one dispute case. Returns
// ErrNotFound when the case does not exist.
func UpdateDisputeStatus(ctx context.Context, db *gorm.DB, id string, status domain.DisputeStatus) error {
	res := db.WithContext(ctx).
		Model(&domain.Dispute{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDispute removes one dispute case. Must run inside the caller's
// transaction when part of a cascade.
func DeleteDispute(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Dispute{}).Error
}

// AttachDisputeConversation links a dispute to a conversation. Used when a
// rejected representment re-opens a case whose original conversation was
// deleted. Returns ErrNotFound when the case does not exist.
func AttachDisputeConversation(ctx context.Context, db *gorm.DB, id, conversationID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Dispute{}).
		Where("id = ?", id).
		Update("conversation_id", conversationID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDisputesByConversation returns the disputes attached to one
// conversation, oldest first. Used by the deletion cascade.
func ListDisputesByConversation(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Dispute, error) {
	var out []domain.Dispute
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

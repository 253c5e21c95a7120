// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation and Message models.
//
// All functions are context-aware where they take a context, accept a
// *gorm.DB handle, and are safe for use within transactions. They follow the
// "thin repository" approach: no business logic, only CRUD persistence and
// query composition.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// CreateConversation inserts a new conversation owned by userID with the
// given title. The ID is a randomly generated UUID and CreatedAt is UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by its ID and owner (userID). If
// the record does not exist, it returns ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// TouchConversation bumps a conversation's UpdatedAt so re-opened cases sort
// to the top of the customer's list. Returns ErrNotFound when missing.
func TouchConversation(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateMessage inserts a new message row.
func CreateMessage(db *gorm.DB, conversationID, role, content string) (*domain.Message, error) {
	m := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(db *gorm.DB, conversationID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("conversation_id = ?", conversationID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// DeleteMessagesByConversation removes every message of a conversation.
// Must run inside the caller's transaction.
func DeleteMessagesByConversation(ctx context.Context, db *gorm.DB, conversationID string) error {
	return db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&domain.Message{}).Error
}

// DeleteConversation removes a conversation owned by userID. Returns
// ErrNotFound when no row matched.
func DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Conversation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(db *gorm.DB, conversationID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID).Scan(&total).Error
	return total, err
}

// Package services – DeletionService
//
// This file implements the idempotent deletion guard for conversations and
// their cascading dispute data. The cascade runs innermost first (messages,
// then dispute cases with their evidence, then the conversation itself)
// inside a single database transaction, and the idempotency record is
// written only after the cascade commits: a failed attempt leaves no ledger
// entry, so a retry with the same key re-runs the full operation. Once a
// record exists for a key, every retry serves the stored result unchanged.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
	"github.com/tbourn/go-dispute-backend/internal/repo"
)

// deleteOperation names the ledger operation for conversation deletion.
const deleteOperation = "conversation_delete"

// DeletionRepo defines the repository contract required by DeletionService.
type DeletionRepo interface {
	GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error)
	ListDisputesByConversation(ctx context.Context, db *gorm.DB, conversationID string) ([]domain.Dispute, error)
	DeleteMessagesByConversation(ctx context.Context, db *gorm.DB, conversationID string) error
	DeleteEvidenceByTransaction(ctx context.Context, db *gorm.DB, transactionID string) error
	DeleteDispute(ctx context.Context, db *gorm.DB, id string) error
	DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error

	GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, operation, resultJSON string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// DeleteResult is the stable payload of a conversation deletion. Retries
// with the same idempotency key return this exact payload with FromCache
// set.
type DeleteResult struct {
	OK             bool      `json:"ok"`
	ConversationID string    `json:"conversation_id"`
	DeletedAt      time.Time `json:"deleted_at"`
	IdempotencyKey string    `json:"idempotency_key"`
	FromCache      bool      `json:"from_cache,omitempty"`
}

// DeletionService deletes conversations and their dispute data behind the
// idempotency ledger.
type DeletionService struct {
	DB   *gorm.DB
	Repo DeletionRepo

	// KeyTTL bounds how long a ledger entry answers retries.
	KeyTTL time.Duration
}

// NewDeletionService constructs a DeletionService with the default retry
// window.
func NewDeletionService(db *gorm.DB, r DeletionRepo) *DeletionService {
	return &DeletionService{DB: db, Repo: r, KeyTTL: 24 * time.Hour}
}

// Delete removes a conversation and its cascading dispute rows. The
// idempotency key is client-generated; a repeated call with the same key
// returns the original result without touching any rows. Returns
// ErrConversationNotFound when the conversation does not exist or belongs to
// another user.
func (s *DeletionService) Delete(ctx context.Context, userID, conversationID, idempotencyKey string) (*DeleteResult, error) {
	tr := otel.Tracer("services/DeletionService")
	ctx, span := tr.Start(ctx, "DeletionService.Delete")
	defer span.End()

	if rec, err := s.Repo.GetIdempotency(ctx, s.DB, userID, idempotencyKey, time.Now().UTC()); err == nil {
		return s.replay(rec)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := s.Repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.replayOrNotFound(ctx, userID, idempotencyKey)
		}
		return nil, err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if derr := s.Repo.DeleteMessagesByConversation(ctx, tx, conversationID); derr != nil {
			return derr
		}
		disputes, derr := s.Repo.ListDisputesByConversation(ctx, tx, conversationID)
		if derr != nil {
			return derr
		}
		for _, d := range disputes {
			if derr := s.Repo.DeleteEvidenceByTransaction(ctx, tx, d.TransactionID); derr != nil {
				return derr
			}
			if derr := s.Repo.DeleteDispute(ctx, tx, d.ID); derr != nil {
				return derr
			}
		}
		return s.Repo.DeleteConversation(ctx, tx, conversationID, userID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.replayOrNotFound(ctx, userID, idempotencyKey)
		}
		return nil, err
	}

	result := &DeleteResult{
		OK:             true,
		ConversationID: conversationID,
		DeletedAt:      time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	_, err = s.Repo.CreateIdempotency(ctx, s.DB, userID, idempotencyKey, deleteOperation, string(payload), 200, s.KeyTTL)
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first; its
		// result is the canonical one.
		rec, gerr := s.Repo.GetIdempotency(ctx, s.DB, userID, idempotencyKey, time.Now().UTC())
		if gerr != nil {
			return nil, gerr
		}
		return s.replay(rec)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("conversation.id", conversationID))
	log.Info().
		Str("conversation_id", conversationID).
		Str("user_id", userID).
		Msg("conversation deleted")
	return result, nil
}

// replayOrNotFound distinguishes a genuinely missing conversation from one a
// concurrent request with the same key already deleted. The pre-check races
// the other request's ledger write, so the rows can vanish mid-cascade; when
// a ledger entry exists by now, its stored result is the canonical answer.
func (s *DeletionService) replayOrNotFound(ctx context.Context, userID, key string) (*DeleteResult, error) {
	rec, err := s.Repo.GetIdempotency(ctx, s.DB, userID, key, time.Now().UTC())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return s.replay(rec)
}

// replay decodes a stored ledger result and flags it as a cache hit.
func (s *DeletionService) replay(rec *domain.Idempotency) (*DeleteResult, error) {
	var out DeleteResult
	if err := json.Unmarshal([]byte(rec.ResultJSON), &out); err != nil {
		return nil, err
	}
	out.FromCache = true
	return &out, nil
}

// Idempotency ledger access. A row records the outcome of a completed
// destructive operation so a retried request can be answered from storage
// instead of running the delete again.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// ErrDuplicate reports that the (user_id, key) tuple already has a ledger
// entry.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the still-valid ledger entry for (userID, key), or
// ErrNotFound when none exists or the entry expired.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency records a completed operation's outcome. The unique index
// on (user_id, key) serializes concurrent duplicates: one writer wins, the
// loser gets ErrDuplicate, re-reads the winner's row, and serves that.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, operation, resultJSON string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		Key:        key,
		Operation:  operation,
		ResultJSON: resultJSON,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// isUniqueViolation matches both GORM's translated error and the plain-text
// forms the pure-Go sqlite driver emits.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

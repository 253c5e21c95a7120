// Aggregate queries over the audit trail, feeding conditional responses in
// the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// AuditStats returns aggregate metadata for a transaction's audit trail: the
// total number of rows and the latest CreatedAt among them. The trail is
// append-only, so (count, latest) is a cheap and exact change detector for
// conditional GETs. When the transaction has no audit rows the returned
// count is 0 and latest is nil.
func AuditStats(ctx context.Context, db *gorm.DB, transactionID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).
		Model(&domain.ChargebackAction{}).
		Where("transaction_id = ?", transactionID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}

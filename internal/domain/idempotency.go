// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the result of a previously processed destructive
// request, keyed by (user_id, key). It enables safe retries for DELETE/POST
// operations by returning the originally produced response without
// re-executing side effects. Once written for a key, a row is never
// overwritten; the unique index makes concurrent duplicate requests resolve
// to a single winner at the persistence layer.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_key,priority:1"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_key,priority:2"`
	Operation  string    `gorm:"type:TEXT NOT NULL"`
	ResultJSON string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Package repo is the persistence layer for the dispute domain, backed by
// GORM over the pure-Go SQLite driver. This file opens the database, tunes
// it for a single-writer API workload, and migrates the schema.
package repo

import (
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-dispute-backend/internal/domain"
)

// OpenSQLite opens or creates the SQLite database at path and attaches query
// tracing so DB time shows up inside request spans. The parent directory must
// already exist; a missing one is reported as a plain stat error rather than
// the driver's opaque "out of memory (14)".
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	tuneSQLite(db)
	return db, nil
}

// tuneSQLite applies the PRAGMAs the dispute workload needs (WAL for
// concurrent readers during intake, enforced foreign keys for the cascade
// deletes, a busy timeout so audit writes queue instead of failing) and
// bounds the connection pool.
func tuneSQLite(db *gorm.DB) {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		db.Exec(pragma)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates or updates the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Transaction{},
		&domain.Dispute{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.Representment{},
		&domain.EvidenceRequest{},
		&domain.CustomerEvidence{},
		&domain.ChargebackAction{},
		&domain.Idempotency{},
	)
}

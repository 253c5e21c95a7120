package repo

import (
	"fmt"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database with the full schema
// migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "nope", "app.db"))
	if err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_CreatesAndMigrates(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []string{"transactions", "disputes", "representments", "evidence_requests", "customer_evidence", "chargeback_actions", "conversations", "messages", "idempotency"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("missing table %q", table)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

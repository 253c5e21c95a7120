package services

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSvcDB opens an isolated in-memory SQLite database. The DB-backed
// services only need it for transaction scoping; all row access in these
// tests goes through fake repos.
func newSvcDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

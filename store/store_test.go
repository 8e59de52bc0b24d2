package store

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestStore opens a fresh in-memory sqlite database per test, following
// the teacher's own use of an isolated DB handle per test case.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	st, err := NewFromDB(db)
	if err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return st
}

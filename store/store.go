// Package store provides durable, idempotent persistence for candles,
// derived metrics, correlations, best-pairs snapshots, and the job-run
// audit log, following the teacher's gorm-backed service pattern
// (services/datafetcher, services/analysis): a small struct wrapping a
// *gorm.DB, with one file per concern.
package store

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fx_market_engine/config"
	"fx_market_engine/models"
)

// Store is the durable relational store for the engine's owned tables.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured backend (postgres in production, sqlite
// for tests/dev) and runs migrations, following config.InitDB's
// connect-then-ping-then-verify shape from the teacher.
func Open(cfg *config.Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.StoreKind {
	case "sqlite":
		dialector = sqlite.Open(cfg.StoreDSN)
	default:
		dialector = postgres.Open(cfg.StoreDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying store handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("store ping failed: %w", err)
	}

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("store migration failed: %w", err)
	}

	log.Println("Store connection verified and migrated")
	return &Store{db: db}, nil
}

// NewFromDB wraps an already-open *gorm.DB (used by tests with an
// in-memory sqlite connection).
func NewFromDB(db *gorm.DB) (*Store, error) {
	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("store migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

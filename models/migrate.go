package models

import "gorm.io/gorm"

// Migrate runs AutoMigrate for every engine-owned table, following the
// teacher's per-domain MigrateXModels convention.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Candle{},
		&VolatilityMetric{},
		&CorrelationEntry{},
		&BestPairEntry{},
		&JobRun{},
	)
}

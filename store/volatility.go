package store

import (
	"time"

	"gorm.io/gorm/clause"

	"fx_market_engine/models"
)

// UpsertVolatility inserts or updates derived-metric rows keyed by
// (instrument, time), mirroring UpsertCandles' conflict handling so a
// re-run of an hourly job for the same candle close is a no-op on the
// numbers and only bumps updated_at.
func (s *Store) UpsertVolatility(rows []models.VolatilityMetric) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range rows {
		rows[i].UpdatedAt = now
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instrument"}, {Name: "time"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"asset_class",
			"hv20", "hv50", "has_hv50",
			"sma15", "sma30", "has_sma30", "sma50", "has_sma50",
			"bb_upper", "bb_middle", "bb_lower", "has_bb",
			"atr", "has_atr",
			"updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// GetLatestVolatility returns the most recent metric row for an instrument,
// or (nil, nil) if none has been computed yet.
func (s *Store) GetLatestVolatility(instrument string) (*models.VolatilityMetric, error) {
	var row models.VolatilityMetric
	err := s.db.
		Where("instrument = ?", instrument).
		Order("time DESC").
		First(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapUnavailable(err)
	}
	return &row, nil
}

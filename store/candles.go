package store

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm/clause"

	"fx_market_engine/models"
)

// UpsertCandles inserts or updates rows keyed by (instrument, time,
// granularity). Re-insertion of the same key replaces the numeric fields
// and bumps updated_at; callers may safely pass duplicates from a retried
// job.
func (s *Store) UpsertCandles(rows []models.Candle) error {
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
		Columns: []clause.Column{{Name: "instrument"}, {Name: "time"}, {Name: "granularity"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"bid_open", "bid_high", "bid_low", "bid_close",
			"ask_open", "ask_high", "ask_low", "ask_close",
			"mid_open", "mid_high", "mid_low", "mid_close",
			"has_bid", "has_ask", "has_mid",
			"volume", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// GetRecentCandles returns up to limit candles for an instrument/granularity,
// newest-first by time.
func (s *Store) GetRecentCandles(instrument string, granularity models.Granularity, limit int) ([]models.Candle, error) {
	var rows []models.Candle
	err := s.db.
		Where("instrument = ? AND granularity = ?", instrument, granularity).
		Order("time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return rows, nil
}

// CloseAt is one time-stamped mid-close sample used by the analytics layer.
type CloseAt struct {
	Time  time.Time
	Close decimal.Decimal
}

// GetRecentCloses returns a time-ordered (oldest-first) list of mid-close
// decimals for the most recent `window` candles.
func (s *Store) GetRecentCloses(instrument string, granularity models.Granularity, window int) ([]CloseAt, error) {
	rows, err := s.GetRecentCandles(instrument, granularity, window)
	if err != nil {
		return nil, err
	}
	out := make([]CloseAt, len(rows))
	for i := range rows {
		// rows are newest-first; reverse into oldest-first while copying.
		src := rows[len(rows)-1-i]
		out[i] = CloseAt{Time: src.Time, Close: src.Mid().Close}
	}
	return out, nil
}

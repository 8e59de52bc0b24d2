package store

import (
	"fmt"

	"fx_market_engine/models"
)

// InsertCorrelation appends one correlation snapshot row per pair for a
// given run. Correlation rows are append-only (each daily run produces a
// new time-stamped snapshot, never overwriting a prior one), but the
// pair1 < pair2 storage invariant is enforced before insert so the matrix
// never ends up with both orderings of the same pair.
func (s *Store) InsertCorrelation(rows []models.CorrelationEntry) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.Pair1 >= row.Pair2 {
			return wrapInvariant(fmt.Errorf("correlation row %s/%s violates pair1 < pair2", row.Pair1, row.Pair2))
		}
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// AppendBestPairs appends one ranked best-pairs snapshot. Like
// CorrelationEntry, these rows are never updated in place.
func (s *Store) AppendBestPairs(rows []models.BestPairEntry) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.Pair1 >= row.Pair2 {
			return wrapInvariant(fmt.Errorf("best-pairs row %s/%s violates pair1 < pair2", row.Pair1, row.Pair2))
		}
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return wrapUnavailable(err)
	}
	return nil
}

// GetLatestCorrelationMatrix returns every correlation row stamped with
// the most recent run time, or an empty slice if no run has completed yet.
func (s *Store) GetLatestCorrelationMatrix() ([]models.CorrelationEntry, error) {
	var latest models.CorrelationEntry
	err := s.db.Order("time DESC").First(&latest).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapUnavailable(err)
	}

	var rows []models.CorrelationEntry
	err = s.db.Where("time = ?", latest.Time).Find(&rows).Error
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return rows, nil
}

// GetLatestBestPairs returns the most recent best-pairs snapshot, ordered
// by rank ascending.
func (s *Store) GetLatestBestPairs() ([]models.BestPairEntry, error) {
	var latest models.BestPairEntry
	err := s.db.Order("time DESC").First(&latest).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, wrapUnavailable(err)
	}

	var rows []models.BestPairEntry
	err = s.db.Where("time = ?", latest.Time).Order("rank ASC").Find(&rows).Error
	if err != nil {
		return nil, wrapUnavailable(err)
	}
	return rows, nil
}

package models

import "time"

// CorrelationCategory classifies a pair by its Pearson correlation magnitude
// and sign. Order of evaluation matters: see analytics.Classify.
type CorrelationCategory string

const (
	CategoryHedging              CorrelationCategory = "hedging"
	CategoryNegativelyCorrelated CorrelationCategory = "negatively_correlated"
	CategoryUncorrelated         CorrelationCategory = "uncorrelated"
	CategoryModerate             CorrelationCategory = "moderate"
	CategoryHighCorrelation      CorrelationCategory = "high_correlation"
)

// CorrelationEntry is the pairwise Pearson correlation between two
// instruments over a window of close prices. Pair1 < Pair2 always holds.
type CorrelationEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Pair1       string    `gorm:"uniqueIndex:idx_corr_key;not null" json:"pair1"`
	Pair2       string    `gorm:"uniqueIndex:idx_corr_key;not null" json:"pair2"`
	Time        time.Time `gorm:"uniqueIndex:idx_corr_key;not null" json:"time"`
	Correlation float64   `json:"correlation"`
	WindowSize  int       `json:"window_size"`
	CreatedAt   time.Time `json:"created_at"`
}

// BestPairEntry is a categorized, ranked correlation pair appended once per
// DailyCorrelationJob run.
type BestPairEntry struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	Time        time.Time           `gorm:"index:idx_bestpair_time" json:"time"`
	Pair1       string              `json:"pair1"`
	Pair2       string              `json:"pair2"`
	Correlation float64             `json:"correlation"`
	Category    CorrelationCategory `json:"category"`
	Rank        int                 `json:"rank"`
	Reason      string              `json:"reason"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Package analytics holds the pure, deterministic transformations over
// candle sequences: historical volatility, moving averages, Bollinger
// bands, average true range, pairwise correlation, and best-pairs
// classification. Every function here is side-effect-free and takes its
// inputs by value, grounded on the teacher's services/analysis package
// shape (stateless computation over a slice of candles) but reimplemented
// against this engine's own metric set.
package analytics

import "github.com/shopspring/decimal"

// roundPrice applies banker's rounding to the five-decimal scale the
// store persists prices at.
func roundPrice(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(5)
}

// roundHV applies banker's rounding to the six-decimal scale the store
// persists historical-volatility percentages at.
func roundHV(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(6)
}

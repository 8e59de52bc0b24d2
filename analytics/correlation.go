package analytics

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// TimedClose is one instrument's close at a specific candle time, used to
// align two series before computing correlation.
type TimedClose struct {
	Time  time.Time
	Close decimal.Decimal
}

// AlignByTime inner-joins two time-ordered series on their Time field,
// returning parallel float64 slices of only the shared timestamps.
func AlignByTime(a, b []TimedClose) ([]float64, []float64) {
	bByTime := make(map[int64]decimal.Decimal, len(b))
	for _, tc := range b {
		bByTime[tc.Time.UnixNano()] = tc.Close
	}

	var xs, ys []float64
	for _, tc := range a {
		if bv, ok := bByTime[tc.Time.UnixNano()]; ok {
			xs = append(xs, tc.Close.InexactFloat64())
			ys = append(ys, bv.InexactFloat64())
		}
	}
	return xs, ys
}

// Correlation computes Pearson's rho over two already-aligned series. ok
// is false (MissingCoverage) when the series don't share at least
// windowSize aligned samples, or when either series has zero variance
// (correlation is undefined for a constant series).
func Correlation(xs, ys []float64, windowSize int) (rho float64, ok bool) {
	if len(xs) != len(ys) || len(xs) < windowSize {
		return 0, false
	}

	xVar, err := stats.SampleVariance(stats.Float64Data(xs))
	if err != nil || xVar == 0 {
		return 0, false
	}
	yVar, err := stats.SampleVariance(stats.Float64Data(ys))
	if err != nil || yVar == 0 {
		return 0, false
	}

	rho, err = stats.Correlation(stats.Float64Data(xs), stats.Float64Data(ys))
	if err != nil {
		return 0, false
	}
	return rho, true
}

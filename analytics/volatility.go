package analytics

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// HistoricalVolatility computes HV(window) over closes c1..cn, annualized
// and expressed as a percent. Requires n >= window+1 closes; returns
// (zero, false) otherwise so the caller omits the metric rather than
// persisting a misleading zero.
//
// Log-returns are computed in float64 (the spec permits double-precision
// intermediate arithmetic for analytics), then standard deviation is
// taken with the sample (N-1) denominator per the documented convention.
func HistoricalVolatility(closes []decimal.Decimal, window int) (decimal.Decimal, bool) {
	if window <= 0 || len(closes) < window+1 {
		return decimal.Zero, false
	}

	returns := logReturns(closes)
	if len(returns) < window {
		return decimal.Zero, false
	}
	last := returns[len(returns)-window:]

	sd, err := stats.StandardDeviationSample(stats.Float64Data(last))
	if err != nil {
		return decimal.Zero, false
	}

	hv := sd * math.Sqrt(tradingDaysPerYear) * 100
	return roundHV(decimal.NewFromFloat(hv)), true
}

// logReturns computes rᵢ = ln(cᵢ / cᵢ₋₁) for i = 2..n.
func logReturns(closes []decimal.Decimal) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1].InexactFloat64()
		cur := closes[i].InexactFloat64()
		if prev <= 0 || cur <= 0 {
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

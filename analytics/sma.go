package analytics

import "github.com/shopspring/decimal"

// SMA returns the arithmetic mean of the last `window` closes. The second
// return value is false when fewer than `window` samples are available —
// callers must omit the metric rather than treat it as zero.
func SMA(closes []decimal.Decimal, window int) (decimal.Decimal, bool) {
	if window <= 0 || len(closes) < window {
		return decimal.Zero, false
	}
	slice := closes[len(closes)-window:]
	sum := decimal.Zero
	for _, c := range slice {
		sum = sum.Add(c)
	}
	mean := sum.Div(decimal.NewFromInt(int64(window)))
	return roundPrice(mean), true
}

package analytics

import "github.com/shopspring/decimal"

const atrWindow = 14

// HLC is one candle's high/low/close, the minimal shape true range needs.
type HLC struct {
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// ATR computes the 14-period average true range: for each candle i >= 2,
// TRi = max(high_i - low_i, |high_i - close_i-1|, |low_i - close_i-1|);
// ATR = SMA14(TR). Requires at least atrWindow+1 candles (one extra for
// the first true-range's previous close).
func ATR(candles []HLC) (decimal.Decimal, bool) {
	if len(candles) < atrWindow+1 {
		return decimal.Zero, false
	}

	trueRanges := make([]decimal.Decimal, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		cur := candles[i]
		prevClose := candles[i-1].Close

		hl := cur.High.Sub(cur.Low)
		hc := cur.High.Sub(prevClose).Abs()
		lc := cur.Low.Sub(prevClose).Abs()

		tr := decimal.Max(hl, decimal.Max(hc, lc))
		trueRanges = append(trueRanges, tr)
	}

	return SMA(trueRanges, atrWindow)
}

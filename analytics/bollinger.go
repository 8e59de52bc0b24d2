package analytics

import (
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

const bollingerWindow = 20

// Bollinger computes the 20-period middle/upper/lower bands: middle is
// SMA(20), upper/lower are middle +/- 2 sample standard deviations of the
// same window. Requires at least 20 closes (SMA and the sample stddev both
// use the last 20); returns ok=false otherwise.
func Bollinger(closes []decimal.Decimal) (upper, middle, lower decimal.Decimal, ok bool) {
	middle, smaOK := SMA(closes, bollingerWindow)
	if !smaOK {
		return decimal.Zero, decimal.Zero, decimal.Zero, false
	}

	window := closes[len(closes)-bollingerWindow:]
	floats := make([]float64, len(window))
	for i, c := range window {
		floats[i] = c.InexactFloat64()
	}

	sd, err := stats.StandardDeviationSample(stats.Float64Data(floats))
	if err != nil {
		return decimal.Zero, decimal.Zero, decimal.Zero, false
	}

	twoSigma := decimal.NewFromFloat(sd * 2)
	upper = roundPrice(middle.Add(twoSigma))
	lower = roundPrice(middle.Sub(twoSigma))
	return upper, middle, lower, true
}

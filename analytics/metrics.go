package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"fx_market_engine/models"
)

const (
	hv20Window  = 20
	hv50Window  = 50
	sma15Window = 15
	sma30Window = 30
	sma50Window = 50
)

// DeriveMetrics computes every VolatilityMetric field from a time-ordered
// (oldest-first) candle window for one instrument. asOf is the time of
// the latest candle in the window. Each sub-metric is independently
// omitted when the window is too short for it: HV50, SMA30, SMA50,
// Bollinger and ATR have their Has* flag left false, while HV20 and SMA15
// have no flag and are left zero. The function never fails outright for
// partial coverage.
func DeriveMetrics(instrument string, assetClass models.AssetClass, asOf time.Time, candles []models.Candle) models.VolatilityMetric {
	mid := make([]models.OHLC, len(candles))
	for i, c := range candles {
		mid[i] = c.Mid()
	}

	closes := make([]decimal.Decimal, len(mid))
	for i, o := range mid {
		closes[i] = o.Close
	}

	metric := models.VolatilityMetric{
		Instrument: instrument,
		Time:       asOf,
		AssetClass: assetClass,
	}

	if hv20, ok := HistoricalVolatility(closes, hv20Window); ok {
		metric.HV20 = hv20
	}
	if hv50, ok := HistoricalVolatility(closes, hv50Window); ok {
		metric.HV50 = hv50
		metric.HasHV50 = true
	}

	if sma15, ok := SMA(closes, sma15Window); ok {
		metric.SMA15 = sma15
	}
	if sma30, ok := SMA(closes, sma30Window); ok {
		metric.SMA30 = sma30
		metric.HasSMA30 = true
	}
	if sma50, ok := SMA(closes, sma50Window); ok {
		metric.SMA50 = sma50
		metric.HasSMA50 = true
	}

	if upper, middle, lower, ok := Bollinger(closes); ok {
		metric.BBUpper, metric.BBMiddle, metric.BBLower = upper, middle, lower
		metric.HasBB = true
	}

	hlc := make([]HLC, len(mid))
	for i, o := range mid {
		hlc[i] = HLC{High: o.High, Low: o.Low, Close: o.Close}
	}
	if atr, ok := ATR(hlc); ok {
		metric.ATR = atr
		metric.HasATR = true
	}

	return metric
}

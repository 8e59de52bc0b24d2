package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity is the time-bucket size of a candle series.
type Granularity string

const (
	GranularityM1  Granularity = "M1"
	GranularityM5  Granularity = "M5"
	GranularityM15 Granularity = "M15"
	GranularityM30 Granularity = "M30"
	GranularityH1  Granularity = "H1"
	GranularityH4  Granularity = "H4"
	GranularityD   Granularity = "D"
	GranularityW   Granularity = "W"
	GranularityM   Granularity = "M"
)

// AssetClass categorizes an instrument for correlation eligibility.
type AssetClass string

const (
	AssetClassFX    AssetClass = "FX"
	AssetClassMetal AssetClass = "METAL"
	AssetClassCFD   AssetClass = "CFD"
)

// OHLC is one quote side's open/high/low/close for a candle.
type OHLC struct {
	Open  decimal.Decimal `gorm:"type:numeric(12,5)"`
	High  decimal.Decimal `gorm:"type:numeric(12,5)"`
	Low   decimal.Decimal `gorm:"type:numeric(12,5)"`
	Close decimal.Decimal `gorm:"type:numeric(12,5)"`
}

// Valid reports whether the OHLC invariant low <= min(o,c) <= max(o,c) <= high holds.
func (o OHLC) Valid() bool {
	lo := decimal.Min(o.Open, o.Close)
	hi := decimal.Max(o.Open, o.Close)
	return o.Low.LessThanOrEqual(lo) && hi.LessThanOrEqual(o.High)
}

// Candle is one row of time-bucketed price information for an
// (instrument, bucket-start, granularity) triple.
type Candle struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Instrument  string      `gorm:"uniqueIndex:idx_candle_key;not null" json:"instrument"`
	Time        time.Time   `gorm:"uniqueIndex:idx_candle_key;not null" json:"time"`
	Granularity Granularity `gorm:"uniqueIndex:idx_candle_key;not null" json:"granularity"`

	BidOpen, BidHigh, BidLow, BidClose decimal.Decimal `gorm:"type:numeric(12,5)" json:"-"`
	AskOpen, AskHigh, AskLow, AskClose decimal.Decimal `gorm:"type:numeric(12,5)" json:"-"`
	MidOpen, MidHigh, MidLow, MidClose decimal.Decimal `gorm:"type:numeric(12,5)" json:"-"`

	HasBid bool `json:"has_bid"`
	HasAsk bool `json:"has_ask"`
	HasMid bool `json:"has_mid"`

	Volume int64 `json:"volume"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bid returns the candle's bid-side OHLC.
func (c Candle) Bid() OHLC { return OHLC{c.BidOpen, c.BidHigh, c.BidLow, c.BidClose} }

// Ask returns the candle's ask-side OHLC.
func (c Candle) Ask() OHLC { return OHLC{c.AskOpen, c.AskHigh, c.AskLow, c.AskClose} }

// Mid returns the candle's mid-side OHLC, computing it from bid/ask if absent.
func (c Candle) Mid() OHLC {
	if c.HasMid {
		return OHLC{c.MidOpen, c.MidHigh, c.MidLow, c.MidClose}
	}
	two := decimal.NewFromInt(2)
	return OHLC{
		Open:  c.BidOpen.Add(c.AskOpen).Div(two),
		High:  c.BidHigh.Add(c.AskHigh).Div(two),
		Low:   c.BidLow.Add(c.AskLow).Div(two),
		Close: c.BidClose.Add(c.AskClose).Div(two),
	}
}

// Valid checks the candle's cross-field invariants: each present side's
// OHLC ordering, and bid <= ask pointwise where both exist.
func (c Candle) Valid() bool {
	if c.HasBid && !c.Bid().Valid() {
		return false
	}
	if c.HasAsk && !c.Ask().Valid() {
		return false
	}
	if c.HasMid && !c.Mid().Valid() {
		return false
	}
	if c.HasBid && c.HasAsk {
		if c.BidOpen.GreaterThan(c.AskOpen) || c.BidHigh.GreaterThan(c.AskHigh) ||
			c.BidLow.GreaterThan(c.AskLow) || c.BidClose.GreaterThan(c.AskClose) {
			return false
		}
	}
	return true
}

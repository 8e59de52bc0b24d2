package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VolatilityMetric is derived from the last N candles of an instrument.
type VolatilityMetric struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Instrument string     `gorm:"uniqueIndex:idx_vol_key;not null" json:"instrument"`
	Time       time.Time  `gorm:"uniqueIndex:idx_vol_key;not null" json:"time"`
	AssetClass AssetClass `json:"asset_class"`

	HV20    decimal.Decimal `gorm:"type:numeric(14,6)" json:"hv20"`
	HV50    decimal.Decimal `gorm:"type:numeric(14,6)" json:"hv50"`
	HasHV50 bool            `json:"has_hv50"`

	SMA15               decimal.Decimal `gorm:"type:numeric(12,5)" json:"sma15"`
	SMA30               decimal.Decimal `gorm:"type:numeric(12,5)" json:"sma30"`
	SMA50               decimal.Decimal `gorm:"type:numeric(12,5)" json:"sma50"`
	HasSMA30, HasSMA50  bool            `json:"-"`

	BBUpper  decimal.Decimal `gorm:"type:numeric(12,5)" json:"bb_upper"`
	BBMiddle decimal.Decimal `gorm:"type:numeric(12,5)" json:"bb_middle"`
	BBLower  decimal.Decimal `gorm:"type:numeric(12,5)" json:"bb_lower"`
	HasBB    bool            `json:"-"`

	ATR    decimal.Decimal `gorm:"type:numeric(12,5)" json:"atr"`
	HasATR bool            `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx_market_engine/models"
)

func TestUpsertVolatilityIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	first := models.VolatilityMetric{
		Instrument: "EURUSD", Time: at, AssetClass: models.AssetClassFX,
		HV20: decimal.NewFromFloat(5.5),
	}
	if err := st.UpsertVolatility([]models.VolatilityMetric{first}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	second := first
	second.HV20 = decimal.NewFromFloat(7.25)
	second.HasHV50 = true
	second.HV50 = decimal.NewFromFloat(8.0)
	if err := st.UpsertVolatility([]models.VolatilityMetric{second}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := st.GetLatestVolatility("EURUSD")
	if err != nil {
		t.Fatalf("GetLatestVolatility failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a row")
	}
	if !got.HV20.Equal(decimal.NewFromFloat(7.25)) {
		t.Fatalf("expected the second upsert's HV20 to win, got %s", got.HV20)
	}
	if !got.HasHV50 {
		t.Fatal("expected HasHV50 to be updated to true")
	}
}

func TestGetLatestVolatilityMissingReturnsNilNoError(t *testing.T) {
	st := newTestStore(t)
	got, err := st.GetLatestVolatility("EURUSD")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil when no metric has ever been persisted, got %+v", got)
	}
}

package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx_market_engine/models"
)

func sampleCandle(instrument string, at time.Time, mid float64) models.Candle {
	c := decimal.NewFromFloat(mid)
	return models.Candle{
		Instrument:  instrument,
		Time:        at,
		Granularity: models.GranularityH1,
		HasMid:      true,
		MidOpen:     c,
		MidHigh:     c.Add(decimal.NewFromFloat(0.001)),
		MidLow:      c.Sub(decimal.NewFromFloat(0.001)),
		MidClose:    c,
	}
}

func TestUpsertCandlesIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	if err := st.UpsertCandles([]models.Candle{sampleCandle("EURUSD", at, 1.1000)}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := st.UpsertCandles([]models.Candle{sampleCandle("EURUSD", at, 1.2000)}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	rows, err := st.GetRecentCandles("EURUSD", models.GranularityH1, 10)
	if err != nil {
		t.Fatalf("GetRecentCandles failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single row for one (instrument,time,granularity) key, got %d", len(rows))
	}
	if !rows[0].MidClose.Equal(decimal.NewFromFloat(1.2000)) {
		t.Fatalf("expected the second upsert's value to win, got %s", rows[0].MidClose)
	}
}

func TestGetRecentCandlesOrdersNewestFirst(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		if err := st.UpsertCandles([]models.Candle{sampleCandle("EURUSD", at, 1.10+float64(i)*0.01)}); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	rows, err := st.GetRecentCandles("EURUSD", models.GranularityH1, 10)
	if err != nil {
		t.Fatalf("GetRecentCandles failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if !rows[0].Time.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("expected newest-first ordering, got first row time %v", rows[0].Time)
	}
}

func TestGetRecentClosesReturnsOldestFirst(t *testing.T) {
	st := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		if err := st.UpsertCandles([]models.Candle{sampleCandle("EURUSD", at, 1.10+float64(i)*0.01)}); err != nil {
			t.Fatalf("upsert %d failed: %v", i, err)
		}
	}

	closes, err := st.GetRecentCloses("EURUSD", models.GranularityH1, 10)
	if err != nil {
		t.Fatalf("GetRecentCloses failed: %v", err)
	}
	if len(closes) != 3 {
		t.Fatalf("expected 3 closes, got %d", len(closes))
	}
	if !closes[0].Time.Equal(base) {
		t.Fatalf("expected the oldest sample first, got %v", closes[0].Time)
	}
	if !closes[len(closes)-1].Time.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("expected the newest sample last, got %v", closes[len(closes)-1].Time)
	}
}

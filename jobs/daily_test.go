package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fx_market_engine/cache"
	"fx_market_engine/models"
)

func seedCloses(t *testing.T, st interface {
	UpsertCandles([]models.Candle) error
}, instrument string, n int, start, step float64) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		v := decimal.NewFromFloat(start + float64(i)*step)
		rows[i] = models.Candle{
			Instrument: instrument, Time: base.Add(time.Duration(i) * time.Hour), Granularity: models.GranularityH1,
			HasMid: true, MidOpen: v, MidHigh: v, MidLow: v, MidClose: v,
		}
	}
	if err := st.UpsertCandles(rows); err != nil {
		t.Fatalf("seeding %s failed: %v", instrument, err)
	}
}

func TestDailyCorrelationJobPersistsMatrixAndBestPairs(t *testing.T) {
	st := newTestStore(t)
	cfg := testConfig("EUR_USD", "GBP_USD")

	// Two closely-tracking series -> strong positive correlation.
	seedCloses(t, st, "EUR_USD", 100, 1.10, 0.0010)
	seedCloses(t, st, "GBP_USD", 100, 1.25, 0.0010)

	c := cache.New(nil)
	bus := cache.NewBus()
	sub := bus.Subscribe(cache.ChannelCorrelationAlerts, cache.ChannelDataReady)
	defer sub.Close()

	job := NewDailyCorrelationJob(cfg, st, c, bus)
	if err := job.Run(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	matrix, err := st.GetLatestCorrelationMatrix()
	if err != nil {
		t.Fatalf("GetLatestCorrelationMatrix failed: %v", err)
	}
	if len(matrix) != 1 {
		t.Fatalf("expected exactly 1 pairwise entry for a 2-instrument universe, got %d", len(matrix))
	}
	if matrix[0].Correlation < 0.99 {
		t.Fatalf("expected near-perfect positive correlation for two identically-trending series, got %v", matrix[0].Correlation)
	}

	best, err := st.GetLatestBestPairs()
	if err != nil {
		t.Fatalf("GetLatestBestPairs failed: %v", err)
	}
	if len(best) != 1 || best[0].Category != models.CategoryHighCorrelation {
		t.Fatalf("expected a single high_correlation best-pair entry, got %+v", best)
	}

	seenAlert, seenDataReady := false, false
	for i := 0; i < 2; i++ {
		select {
		case msg := <-sub.Messages():
			switch msg.Channel {
			case cache.ChannelCorrelationAlerts:
				seenAlert = true
			case cache.ChannelDataReady:
				seenDataReady = true
			}
		case <-time.After(time.Second):
			t.Fatal("expected both a correlation_alerts and data_ready message")
		}
	}
	if !seenAlert || !seenDataReady {
		t.Fatalf("seenAlert=%v seenDataReady=%v", seenAlert, seenDataReady)
	}
}

func TestDailyCorrelationJobSkipsCFDInstruments(t *testing.T) {
	st := newTestStore(t)
	cfg := testConfig("EUR_USD", "SPX500")
	cfg.AssetClass["SPX500"] = "CFD"

	seedCloses(t, st, "EUR_USD", 100, 1.10, 0.0010)
	seedCloses(t, st, "SPX500", 100, 4500, 1.0)

	c := cache.New(nil)
	bus := cache.NewBus()

	job := NewDailyCorrelationJob(cfg, st, c, bus)
	if err := job.Run(context.Background(), time.Now().UTC()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	matrix, err := st.GetLatestCorrelationMatrix()
	if err != nil {
		t.Fatalf("GetLatestCorrelationMatrix failed: %v", err)
	}
	if len(matrix) != 0 {
		t.Fatalf("expected no pairs (only one FX/METAL instrument is eligible), got %d", len(matrix))
	}
}

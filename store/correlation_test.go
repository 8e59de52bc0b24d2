package store

import (
	"errors"
	"testing"
	"time"

	"fx_market_engine/models"
)

func TestInsertCorrelationRejectsUnorderedPair(t *testing.T) {
	st := newTestStore(t)
	rows := []models.CorrelationEntry{
		{Pair1: "GBPUSD", Pair2: "EURUSD", Time: time.Now(), Correlation: 0.5, WindowSize: 100},
	}
	err := st.InsertCorrelation(rows)
	if err == nil {
		t.Fatal("expected an error for pair1 > pair2")
	}
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestInsertCorrelationAcceptsOrderedPair(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()
	rows := []models.CorrelationEntry{
		{Pair1: "EURUSD", Pair2: "GBPUSD", Time: now, Correlation: 0.5, WindowSize: 100},
	}
	if err := st.InsertCorrelation(rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	matrix, err := st.GetLatestCorrelationMatrix()
	if err != nil {
		t.Fatalf("GetLatestCorrelationMatrix failed: %v", err)
	}
	if len(matrix) != 1 || matrix[0].Pair1 != "EURUSD" {
		t.Fatalf("expected the inserted row back, got %+v", matrix)
	}
}

func TestAppendBestPairsRejectsUnorderedPair(t *testing.T) {
	st := newTestStore(t)
	rows := []models.BestPairEntry{
		{Pair1: "USDJPY", Pair2: "EURUSD", Time: time.Now(), Correlation: -0.8, Category: models.CategoryHedging, Rank: 1},
	}
	if err := st.AppendBestPairs(rows); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestGetLatestCorrelationMatrixOnlyReturnsLatestRun(t *testing.T) {
	st := newTestStore(t)
	older := time.Now().Add(-24 * time.Hour).UTC()
	newer := time.Now().UTC()

	if err := st.InsertCorrelation([]models.CorrelationEntry{
		{Pair1: "AUDUSD", Pair2: "NZDUSD", Time: older, Correlation: 0.2, WindowSize: 100},
	}); err != nil {
		t.Fatalf("insert older failed: %v", err)
	}
	if err := st.InsertCorrelation([]models.CorrelationEntry{
		{Pair1: "EURUSD", Pair2: "GBPUSD", Time: newer, Correlation: 0.9, WindowSize: 100},
	}); err != nil {
		t.Fatalf("insert newer failed: %v", err)
	}

	matrix, err := st.GetLatestCorrelationMatrix()
	if err != nil {
		t.Fatalf("GetLatestCorrelationMatrix failed: %v", err)
	}
	if len(matrix) != 1 || matrix[0].Pair1 != "EURUSD" {
		t.Fatalf("expected only the newest run's row, got %+v", matrix)
	}
}

func TestGetLatestBestPairsEmptyWhenNoRun(t *testing.T) {
	st := newTestStore(t)
	rows, err := st.GetLatestBestPairs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows before any job has run, got %d", len(rows))
	}
}

package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fx_market_engine/config"
	"fx_market_engine/models"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{
		BrokerToken:       "test-token",
		BrokerEnv:         config.EnvPractice,
		TrackedPairs:      []string{"EUR_USD"},
		RateLimitRequests: 100,
		RateLimitWindow:   time.Second,
	}
	// keep retry tests fast: no multi-second sleeps between attempts.
	return New(cfg, WithBaseURL(baseURL), WithRetryConfig(3, time.Millisecond, 5*time.Millisecond))
}

const samplePayload = `{
  "instrument": "EUR_USD",
  "granularity": "H1",
  "candles": [
    {"time":"2026-01-01T10:00:00.000000000Z","complete":true,"volume":120,
     "mid":{"o":"1.1000","h":"1.1050","l":"1.0990","c":"1.1020"}}
  ]
}`

func TestFetchCandlesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	rows, err := c.FetchCandles(context.Background(), "EUR_USD", models.GranularityH1, 1, []Side{SideMid})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(rows))
	}
	if !rows[0].HasMid {
		t.Fatal("expected HasMid=true")
	}
	if rows[0].MidClose.String() != "1.102" {
		t.Fatalf("expected mid close 1.102, got %s", rows[0].MidClose)
	}
}

func TestFetchCandlesRejectsUntrackedInstrument(t *testing.T) {
	c := testClient("http://unused.invalid")
	_, err := c.FetchCandles(context.Background(), "GBP_USD", models.GranularityH1, 1, []Side{SideMid})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for untracked instrument, got %v", err)
	}
}

func TestFetchCandlesRejectsCountOutOfRange(t *testing.T) {
	c := testClient("http://unused.invalid")
	_, err := c.FetchCandles(context.Background(), "EUR_USD", models.GranularityH1, 0, []Side{SideMid})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for count=0, got %v", err)
	}
	_, err = c.FetchCandles(context.Background(), "EUR_USD", models.GranularityH1, maxCandlesPerCall+1, []Side{SideMid})
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for count above the cap, got %v", err)
	}
}

func TestFetchCandlesAuthErrorNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchCandles(context.Background(), "EUR_USD", models.GranularityH1, 1, []Side{SideMid})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable error, got %d", attempts)
	}
}

func TestFetchCandlesServerErrorRetriedThenFails(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.FetchCandles(context.Background(), "EUR_USD", models.GranularityH1, 1, []Side{SideMid})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if attempts != c.retry.maxAttempts {
		t.Fatalf("expected %d attempts, got %d", c.retry.maxAttempts, attempts)
	}
}

func TestFetchCandlesRateLimitedIsRetryable(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	rows, err := c.FetchCandles(context.Background(), "EUR_USD", models.GranularityH1, 1, []Side{SideMid})
	if err != nil {
		t.Fatalf("expected eventual success after a rate-limited attempt, got %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 candle, got %d", len(rows))
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestPriceQueryParamOrdersAndDeduplicates(t *testing.T) {
	cases := []struct {
		sides []Side
		want  string
	}{
		{nil, "M"},
		{[]Side{SideAsk, SideBid, SideMid}, "MBA"},
		{[]Side{SideBid, SideBid}, "B"},
	}
	for _, tc := range cases {
		if got := priceQueryParam(tc.sides); got != tc.want {
			t.Errorf("priceQueryParam(%v) = %q, want %q", tc.sides, got, tc.want)
		}
	}
}

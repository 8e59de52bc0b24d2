// Package broker implements the HTTP client for the upstream price
// provider: authenticated candle fetches, decimal-safe parsing, a
// process-wide token-bucket rate limiter, and bounded retry with
// exponential backoff, grounded on the pack's exchange-driver clients
// (navid-fn-radar's rate.Limiter.Wait(ctx) gate and faulttolerance/retry.go
// backoff shape) re-expressed against this engine's single REST endpoint.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"fx_market_engine/config"
	"fx_market_engine/models"
)

const maxCandlesPerCall = 5000

// Side is one quote side the broker can return per candle.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
	SideMid Side = "mid"
)

// Client issues authenticated candle requests against the configured
// broker environment.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *rate.Limiter
	retry      retryConfig
	tracked    map[string]bool
}

// Option customizes a Client built by New, beyond what config.Config
// covers — e.g. pointing at a non-standard gateway, or tightening retry
// behavior for a latency-sensitive deployment.
type Option func(*Client)

// WithBaseURL overrides the broker base URL that config.Config.BaseURL
// would otherwise select. Useful for on-prem gateways in front of the
// broker API, and for tests that stand up a local HTTP server.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithRetryConfig overrides the default bounded-backoff retry policy.
func WithRetryConfig(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retry = retryConfig{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay, multiplier: 2.0, jitter: 0.2}
	}
}

// New builds a Client from engine configuration. The token is read once
// here and never logged in full (config.MaskedToken covers diagnostics).
func New(cfg *config.Config, opts ...Option) *Client {
	tracked := make(map[string]bool, len(cfg.TrackedPairs))
	for _, instrument := range cfg.TrackedPairs {
		tracked[instrument] = true
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.BaseURL(),
		token:      cfg.BrokerToken,
		limiter:    newLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		retry:      defaultRetryConfig(),
		tracked:    tracked,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type candleWire struct {
	Time     string       `json:"time"`
	Complete bool         `json:"complete"`
	Bid      *ohlcWire    `json:"bid,omitempty"`
	Ask      *ohlcWire    `json:"ask,omitempty"`
	Mid      *ohlcWire    `json:"mid,omitempty"`
	Volume   int64        `json:"volume"`
}

type ohlcWire struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type candlesResponse struct {
	Instrument  string       `json:"instrument"`
	Granularity string       `json:"granularity"`
	Candles     []candleWire `json:"candles"`
}

// FetchCandles retrieves up to count candles for instrument/granularity,
// restricted to the requested price sides. Results are ordered oldest
// to newest. The instrument must be part of the tracked universe.
func (c *Client) FetchCandles(ctx context.Context, instrument string, granularity models.Granularity, count int, sides []Side) ([]models.Candle, error) {
	if !c.tracked[instrument] {
		return nil, wrap(ErrBadRequest, fmt.Errorf("instrument %q is not in the tracked universe", instrument))
	}
	if count <= 0 || count > maxCandlesPerCall {
		return nil, wrap(ErrBadRequest, fmt.Errorf("count must be in (0, %d], got %d", maxCandlesPerCall, count))
	}
	priceParam := priceQueryParam(sides)

	var rows []models.Candle
	err := withRetry(ctx, c.retry, "fetch_candles:"+instrument, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		parsed, fetchErr := c.doFetch(ctx, instrument, granularity, count, priceParam)
		if fetchErr != nil {
			return fetchErr
		}
		rows = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) doFetch(ctx context.Context, instrument string, granularity models.Granularity, count int, priceParam string) ([]models.Candle, error) {
	url := fmt.Sprintf("%s/v3/instruments/%s/candles?count=%d&granularity=%s&price=%s",
		c.baseURL, instrument, count, granularity, priceParam)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, wrap(ErrBadRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrap(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, wrap(ErrAuth, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, wrap(ErrRateLimited, fmt.Errorf("status %d, retry-after=%s", resp.StatusCode, resp.Header.Get("Retry-After")))
	case resp.StatusCode >= 500:
		return nil, wrap(ErrUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, wrap(ErrBadRequest, fmt.Errorf("status %d", resp.StatusCode))
	}

	var decoded candlesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, wrap(ErrParse, err)
	}

	rows := make([]models.Candle, 0, len(decoded.Candles))
	for _, raw := range decoded.Candles {
		row, err := toCandle(instrument, granularity, raw)
		if err != nil {
			return nil, wrap(ErrParse, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func toCandle(instrument string, granularity models.Granularity, raw candleWire) (models.Candle, error) {
	t, err := time.Parse(time.RFC3339Nano, raw.Time)
	if err != nil {
		return models.Candle{}, fmt.Errorf("parsing candle time %q: %w", raw.Time, err)
	}

	row := models.Candle{
		Instrument:  instrument,
		Time:        t.UTC(),
		Granularity: granularity,
		Volume:      raw.Volume,
	}

	if raw.Bid != nil {
		o, err := parseSide(*raw.Bid)
		if err != nil {
			return models.Candle{}, err
		}
		row.BidOpen, row.BidHigh, row.BidLow, row.BidClose = o.Open, o.High, o.Low, o.Close
		row.HasBid = true
	}
	if raw.Ask != nil {
		o, err := parseSide(*raw.Ask)
		if err != nil {
			return models.Candle{}, err
		}
		row.AskOpen, row.AskHigh, row.AskLow, row.AskClose = o.Open, o.High, o.Low, o.Close
		row.HasAsk = true
	}
	if raw.Mid != nil {
		o, err := parseSide(*raw.Mid)
		if err != nil {
			return models.Candle{}, err
		}
		row.MidOpen, row.MidHigh, row.MidLow, row.MidClose = o.Open, o.High, o.Low, o.Close
		row.HasMid = true
	}

	return row, nil
}

func parseSide(w ohlcWire) (models.OHLC, error) {
	open, err := decimal.NewFromString(w.O)
	if err != nil {
		return models.OHLC{}, fmt.Errorf("parsing open %q: %w", w.O, err)
	}
	high, err := decimal.NewFromString(w.H)
	if err != nil {
		return models.OHLC{}, fmt.Errorf("parsing high %q: %w", w.H, err)
	}
	low, err := decimal.NewFromString(w.L)
	if err != nil {
		return models.OHLC{}, fmt.Errorf("parsing low %q: %w", w.L, err)
	}
	close, err := decimal.NewFromString(w.C)
	if err != nil {
		return models.OHLC{}, fmt.Errorf("parsing close %q: %w", w.C, err)
	}
	return models.OHLC{Open: open, High: high, Low: low, Close: close}, nil
}

// priceQueryParam renders the requested sides in the broker's single-
// letter convention (M=mid, B=bid, A=ask), de-duplicated and in MBA order
// regardless of input ordering.
func priceQueryParam(sides []Side) string {
	want := make(map[Side]bool, len(sides))
	for _, s := range sides {
		want[s] = true
	}
	var b strings.Builder
	if want[SideMid] {
		b.WriteString("M")
	}
	if want[SideBid] {
		b.WriteString("B")
	}
	if want[SideAsk] {
		b.WriteString("A")
	}
	if b.Len() == 0 {
		b.WriteString("M")
	}
	return b.String()
}

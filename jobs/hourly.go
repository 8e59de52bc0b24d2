// Package jobs implements the two scheduled pipelines, HourlyJob and
// DailyCorrelationJob, wiring BrokerClient, Store, Analytics, and the
// cache/bus together into the sequences spec'd for each run. Structured
// the way the teacher's scheduler/jobs.go composed its stock jobs: a
// small struct holding its collaborators, one exported Run method per
// job, stdlib log for progress.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fx_market_engine/analytics"
	"fx_market_engine/broker"
	"fx_market_engine/cache"
	"fx_market_engine/config"
	"fx_market_engine/models"
	"fx_market_engine/store"
)

// partialCoverageThreshold is the fraction of the tracked universe that
// may fail before the hourly job is marked failed instead of a
// success-with-partial-coverage note.
const partialCoverageThreshold = 0.30

// defaultHVAlertThreshold is the HV20 percentage above which a
// volatility_alerts message fires. config.Config has no setting for it,
// so this value is always used.
const defaultHVAlertThreshold = 2.0

// HourlyJob pulls the latest completed H1 candles for every tracked
// instrument, derives volatility metrics, and publishes updates.
type HourlyJob struct {
	cfg    *config.Config
	broker *broker.Client
	store  *store.Store
	cache  *cache.Cache
	bus    *cache.Bus
	ttls   cache.TTLSet
}

// NewHourlyJob wires the job's collaborators.
func NewHourlyJob(cfg *config.Config, brokerClient *broker.Client, st *store.Store, c *cache.Cache, bus *cache.Bus) *HourlyJob {
	ttls := cache.NewTTLSet(cfg.CacheTTLPrices, cfg.CacheTTLMetrics, cfg.CacheTTLCorrelation)
	return &HourlyJob{cfg: cfg, broker: brokerClient, store: st, cache: c, bus: bus, ttls: ttls}
}

// Run executes one hourly pass, following the engine's nine-step
// sequence: pull, upsert, reload window, derive metrics, upsert metrics,
// warm the cache, publish updates/alerts, publish a data_ready summary,
// and finalize. now is the logical clock the caller passes in so a
// misfire recovery run can replay with its nominal trigger time.
func (j *HourlyJob) Run(ctx context.Context, now time.Time) error {
	run, err := j.store.BeginJob("HourlyJob")
	if err != nil {
		return fmt.Errorf("hourly job: failed to begin job log: %w", err)
	}

	upserts := 0
	failures := 0
	universe := j.cfg.TrackedPairs

	for _, instrument := range universe {
		n, err := j.processInstrument(ctx, instrument, now)
		if err != nil {
			failures++
			log.Printf("hourly job: %s failed: %v", instrument, err)
			continue
		}
		upserts += n
	}

	j.publishDataReady("prices", upserts, now)

	failureRate := 0.0
	if len(universe) > 0 {
		failureRate = float64(failures) / float64(len(universe))
	}

	status := models.JobStatusSuccess
	errMsg := ""
	if failures > 0 {
		errMsg = fmt.Sprintf("%d/%d instruments failed", failures, len(universe))
	}
	if failureRate > partialCoverageThreshold {
		status = models.JobStatusFailed
	}

	if err := j.store.EndJob(run, status, errMsg, upserts); err != nil {
		log.Printf("hourly job: failed to finalize job log: %v", err)
	}

	if status == models.JobStatusFailed {
		return fmt.Errorf("hourly job: failure rate %.0f%% exceeds threshold", failureRate*100)
	}
	return nil
}

// processInstrument runs steps 1-7 of the hourly sequence for a single
// instrument and returns the number of candle rows upserted.
func (j *HourlyJob) processInstrument(ctx context.Context, instrument string, now time.Time) (int, error) {
	candles, err := j.broker.FetchCandles(ctx, instrument, models.GranularityH1, 2, []broker.Side{broker.SideBid, broker.SideAsk, broker.SideMid})
	if err != nil {
		return 0, fmt.Errorf("fetch_candles: %w", err)
	}
	if len(candles) == 0 {
		return 0, nil
	}

	if err := j.store.UpsertCandles(candles); err != nil {
		return 0, fmt.Errorf("upsert_candles: %w", err)
	}

	assetClass := models.AssetClass(j.cfg.AssetClass[instrument])
	if assetClass == "" {
		assetClass = models.AssetClassFX
	}

	window, err := j.store.GetRecentCandles(instrument, models.GranularityH1, 300)
	if err != nil {
		return 0, fmt.Errorf("get_recent_candles: %w", err)
	}
	oldestFirst := reverseCandles(window)

	if len(oldestFirst) == 0 {
		return len(candles), nil
	}
	asOf := oldestFirst[len(oldestFirst)-1].Time
	metric := analytics.DeriveMetrics(instrument, assetClass, asOf, oldestFirst)

	// HV20 needs at least 21 closes; treat that as the coverage floor for
	// persisting a metric row at all (the other fields are independently
	// gated by their own Has* flags).
	if len(oldestFirst) >= 21 {
		if err := j.store.UpsertVolatility([]models.VolatilityMetric{metric}); err != nil {
			log.Printf("hourly job: %s: upsert_volatility failed: %v", instrument, err)
		} else {
			j.warmCache(instrument, metric, oldestFirst[len(oldestFirst)-1])
			j.maybeAlertVolatility(instrument, metric, now)
		}
	}

	latest := oldestFirst[len(oldestFirst)-1]
	if len(oldestFirst) < 2 || closeChanged(oldestFirst[len(oldestFirst)-2], latest) {
		j.publishPriceUpdate(instrument, latest, now)
	}

	return len(candles), nil
}

// closeChanged reports whether latest's close differs from prev's, checked
// on whichever side both candles can produce (mid preferred, then bid,
// then ask). Lacking any comparable side, it defaults to true so a
// price_update is never silently withheld.
func closeChanged(prev, latest models.Candle) bool {
	prevMid := prev.HasMid || (prev.HasBid && prev.HasAsk)
	latestMid := latest.HasMid || (latest.HasBid && latest.HasAsk)
	if prevMid && latestMid {
		return !prev.Mid().Close.Equal(latest.Mid().Close)
	}
	if prev.HasBid && latest.HasBid {
		return !prev.Bid().Close.Equal(latest.Bid().Close)
	}
	if prev.HasAsk && latest.HasAsk {
		return !prev.Ask().Close.Equal(latest.Ask().Close)
	}
	return true
}

func (j *HourlyJob) warmCache(instrument string, metric models.VolatilityMetric, latest models.Candle) {
	priceJSON, err := json.Marshal(priceSnapshot(instrument, latest, time.Now().UTC()))
	if err == nil {
		j.cache.Put(cache.PriceKey(instrument), priceJSON, j.ttls.Duration(cache.TTLPrices))
	}

	metricsJSON, err := json.Marshal(metric)
	if err == nil {
		j.cache.Put(cache.MetricsKey(instrument), metricsJSON, j.ttls.Duration(cache.TTLMetrics))
	}
}

func (j *HourlyJob) maybeAlertVolatility(instrument string, metric models.VolatilityMetric, now time.Time) {
	threshold := defaultHVAlertThreshold
	hv := metric.HV20.InexactFloat64()
	if hv <= threshold {
		return
	}

	severity := "info"
	ratio := hv / threshold
	switch {
	case ratio >= 2.0:
		severity = "critical"
	case ratio >= 1.5:
		severity = "warning"
	}

	payload, _ := json.Marshal(map[string]any{
		"instrument": instrument,
		"volatility": hv,
		"threshold":  threshold,
		"severity":   severity,
		"message":    fmt.Sprintf("%s HV20 %.2f%% exceeds threshold %.2f%%", instrument, hv, threshold),
		"timestamp":  now.UTC().Format(time.RFC3339),
	})
	j.bus.Publish(cache.ChannelVolatilityAlerts, payload)
}

func (j *HourlyJob) publishPriceUpdate(instrument string, latest models.Candle, now time.Time) {
	payload, _ := json.Marshal(map[string]any{
		"instrument": instrument,
		"price":      priceSnapshot(instrument, latest, now).Price,
		"timestamp":  now.UTC().Format(time.RFC3339),
	})
	j.bus.Publish(cache.ChannelPriceUpdates, payload)
}

func (j *HourlyJob) publishDataReady(dataType string, count int, now time.Time) {
	payload, _ := json.Marshal(map[string]any{
		"data_type": dataType,
		"count":     count,
		"timestamp": now.UTC().Format(time.RFC3339),
	})
	j.bus.Publish(cache.ChannelDataReady, payload)
}

type pricePayload struct {
	Instrument string `json:"instrument"`
	Price      struct {
		Bid  string `json:"bid"`
		Ask  string `json:"ask"`
		Mid  string `json:"mid"`
		Time string `json:"time"`
	} `json:"price"`
}

func priceSnapshot(instrument string, c models.Candle, now time.Time) pricePayload {
	p := pricePayload{Instrument: instrument}
	p.Price.Bid = c.Bid().Close.String()
	p.Price.Ask = c.Ask().Close.String()
	p.Price.Mid = c.Mid().Close.String()
	p.Price.Time = c.Time.UTC().Format(time.RFC3339)
	return p
}

func reverseCandles(rows []models.Candle) []models.Candle {
	out := make([]models.Candle, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out
}

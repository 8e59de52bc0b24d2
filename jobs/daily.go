package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fx_market_engine/analytics"
	"fx_market_engine/cache"
	"fx_market_engine/config"
	"fx_market_engine/models"
	"fx_market_engine/store"
)

const correlationWindowSize = 100

// DailyCorrelationJob computes the pairwise correlation matrix across the
// FX+METAL tracked universe and ranks best-pairs once per day.
type DailyCorrelationJob struct {
	cfg   *config.Config
	store *store.Store
	cache *cache.Cache
	bus   *cache.Bus
	ttls  cache.TTLSet
}

// NewDailyCorrelationJob wires the job's collaborators.
func NewDailyCorrelationJob(cfg *config.Config, st *store.Store, c *cache.Cache, bus *cache.Bus) *DailyCorrelationJob {
	ttls := cache.NewTTLSet(cfg.CacheTTLPrices, cfg.CacheTTLMetrics, cfg.CacheTTLCorrelation)
	return &DailyCorrelationJob{cfg: cfg, store: st, cache: c, bus: bus, ttls: ttls}
}

// Run executes the daily sequence: load closes, align by time, compute
// correlation per pair, persist, classify/rank, and publish.
func (j *DailyCorrelationJob) Run(ctx context.Context, now time.Time) error {
	run, err := j.store.BeginJob("DailyCorrelationJob")
	if err != nil {
		return fmt.Errorf("daily job: failed to begin job log: %w", err)
	}

	universe := j.correlationEligibleUniverse()
	series := make(map[string][]analytics.TimedClose, len(universe))
	for _, instrument := range universe {
		closes, err := j.store.GetRecentCloses(instrument, models.GranularityH1, correlationWindowSize)
		if err != nil {
			log.Printf("daily job: %s: get_recent_closes failed: %v", instrument, err)
			continue
		}
		tc := make([]analytics.TimedClose, len(closes))
		for i, c := range closes {
			tc[i] = analytics.TimedClose{Time: c.Time, Close: c.Close}
		}
		series[instrument] = tc
	}

	var entries []models.CorrelationEntry
	var ranked []analytics.RankedPair
	for i := 0; i < len(universe); i++ {
		for k := i + 1; k < len(universe); k++ {
			a, b := universe[i], universe[k]
			pair1, pair2 := orderPair(a, b)

			xs, ys := analytics.AlignByTime(series[a], series[b])
			rho, ok := analytics.Correlation(xs, ys, correlationWindowSize)
			if !ok {
				continue // MissingCoverage: skip from this run's matrix
			}

			entries = append(entries, models.CorrelationEntry{
				Pair1: pair1, Pair2: pair2, Time: now,
				Correlation: rho, WindowSize: correlationWindowSize,
			})
			ranked = append(ranked, analytics.RankedPair{
				Pair1: pair1, Pair2: pair2,
				Correlation: rho, Category: analytics.Classify(rho),
			})
		}
	}

	if err := j.store.InsertCorrelation(entries); err != nil {
		log.Printf("daily job: insert_correlation failed: %v", err)
	}

	bestPairs := analytics.RankBestPairs(ranked)
	for i := range bestPairs {
		bestPairs[i].Time = now
	}
	if err := j.store.AppendBestPairs(bestPairs); err != nil {
		log.Printf("daily job: append_best_pairs failed: %v", err)
	}

	j.warmCache(entries, bestPairs)
	j.publishAlerts(entries, j.cfg.CorrelationThreshold, now)
	j.publishDataReady("correlations", len(entries), now)

	if err := j.store.EndJob(run, models.JobStatusSuccess, "", len(entries)); err != nil {
		log.Printf("daily job: failed to finalize job log: %v", err)
	}
	return nil
}

// correlationEligibleUniverse is the tracked FX and METAL instruments;
// CFDs are excluded from the correlation matrix per the daily job's scope.
func (j *DailyCorrelationJob) correlationEligibleUniverse() []string {
	out := make([]string, 0, len(j.cfg.TrackedPairs))
	for _, instrument := range j.cfg.TrackedPairs {
		class := j.cfg.AssetClass[instrument]
		if class == string(models.AssetClassFX) || class == string(models.AssetClassMetal) {
			out = append(out, instrument)
		}
	}
	return out
}

func orderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func (j *DailyCorrelationJob) warmCache(entries []models.CorrelationEntry, bestPairs []models.BestPairEntry) {
	if matrixJSON, err := json.Marshal(entries); err == nil {
		j.cache.Put(cache.CorrelationMatrixKey(), matrixJSON, j.ttls.Duration(cache.TTLCorrelation))
	}

	byCategory := make(map[models.CorrelationCategory][]models.BestPairEntry)
	for _, bp := range bestPairs {
		byCategory[bp.Category] = append(byCategory[bp.Category], bp)
	}
	for category, rows := range byCategory {
		if payload, err := json.Marshal(rows); err == nil {
			j.cache.Put(cache.BestPairsKey(string(category)), payload, j.ttls.Duration(cache.TTLCorrelation))
		}
	}
	if allJSON, err := json.Marshal(bestPairs); err == nil {
		j.cache.Put(cache.BestPairsKey("all"), allJSON, j.ttls.Duration(cache.TTLCorrelation))
	}
}

func (j *DailyCorrelationJob) publishAlerts(entries []models.CorrelationEntry, alertThreshold float64, now time.Time) {
	for _, e := range entries {
		if absFloat(e.Correlation) < alertThreshold {
			continue
		}
		severity := "warning"
		if absFloat(e.Correlation) >= 0.9 {
			severity = "critical"
		}
		payload, _ := json.Marshal(map[string]any{
			"pair1":       e.Pair1,
			"pair2":       e.Pair2,
			"correlation": e.Correlation,
			"threshold":   alertThreshold,
			"severity":    severity,
			"message":     fmt.Sprintf("%s/%s correlation %.2f exceeds threshold %.2f", e.Pair1, e.Pair2, e.Correlation, alertThreshold),
			"timestamp":   now.UTC().Format(time.RFC3339),
		})
		j.bus.Publish(cache.ChannelCorrelationAlerts, payload)
	}
}

func (j *DailyCorrelationJob) publishDataReady(dataType string, count int, now time.Time) {
	payload, _ := json.Marshal(map[string]any{
		"data_type": dataType,
		"count":     count,
		"timestamp": now.UTC().Format(time.RFC3339),
	})
	j.bus.Publish(cache.ChannelDataReady, payload)
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

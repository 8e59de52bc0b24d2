// Package scheduler drives the two cron-triggered jobs on top of
// go-co-op/gocron, following the teacher's scheduler/jobs.go shape (a
// struct wrapping a *gocron.Scheduler plus the collaborators each job
// needs) but swapping the teacher's .Every(...).At(...) convenience API
// for explicit cron expressions and SingletonMode, since this engine's
// concurrency-guard requirement (drop an overlapping tick rather than
// queue it) maps directly onto that gocron option.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"fx_market_engine/config"
	"fx_market_engine/jobs"
)

const (
	hourlyCron = "0 * * * *"
	dailyCron  = "0 0 * * *"

	hourlyCadence = time.Hour
	dailyCadence  = 24 * time.Hour

	hourlyGrace = 60 * time.Second
	dailyGrace  = 300 * time.Second

	hourlyTimeout = 120 * time.Second
	dailyTimeout  = 600 * time.Second

	shutdownGrace = 60 * time.Second
)

// Scheduler owns the gocron loop and the two job runners.
type Scheduler struct {
	cfg    *config.Config
	cron   *gocron.Scheduler
	hourly *jobs.HourlyJob
	daily  *jobs.DailyCorrelationJob
}

// New builds a Scheduler; jobs are registered but not yet started.
func New(cfg *config.Config, hourly *jobs.HourlyJob, daily *jobs.DailyCorrelationJob) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		cron:   gocron.NewScheduler(time.UTC),
		hourly: hourly,
		daily:  daily,
	}
}

// Start registers the hourly and daily jobs (gated by their respective
// JobXEnabled config flags) and begins the async cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.JobHourlyEnabled {
		job, err := s.cron.Cron(hourlyCron).SingletonMode().Do(func() {
			s.runWithGrace("HourlyJob", hourlyCadence, hourlyGrace, hourlyTimeout, s.hourly.Run)
		})
		if err != nil {
			return err
		}
		_ = job
	}

	if s.cfg.JobDailyEnabled {
		job, err := s.cron.Cron(dailyCron).SingletonMode().Do(func() {
			s.runWithGrace("DailyCorrelationJob", dailyCadence, dailyGrace, dailyTimeout, s.daily.Run)
		})
		if err != nil {
			return err
		}
		_ = job
	}

	s.cron.StartAsync()
	log.Println("scheduler started")
	return nil
}

// runWithGrace computes the logical "now" for this tick: the nominal
// trigger time is wall-clock now truncated down to the job's cadence (the
// top of the hour, or midnight UTC). If the tick is firing within grace of
// that nominal time, the run is handed the nominal time as now (misfire
// recovery — a late-firing tick still sees the top-of-hour/midnight it was
// meant for); otherwise it's handed the actual wall-clock time. gocron's
// SingletonMode already guarantees this closure never overlaps with a
// prior in-flight run of the same job, so no additional locking is needed
// here.
func (s *Scheduler) runWithGrace(name string, cadence, grace, timeout time.Duration, run func(ctx context.Context, now time.Time) error) {
	wallNow := time.Now().UTC()
	nominal := wallNow.Truncate(cadence)
	logicalNow := wallNow
	if lag := wallNow.Sub(nominal); lag > 0 && lag <= grace {
		logicalNow = nominal
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := run(ctx, logicalNow); err != nil {
		log.Printf("scheduler: %s failed: %v", name, err)
	}
}

// Stop halts new ticks and waits up to shutdownGrace for any in-flight
// job to finish before returning, per the scheduler's shutdown contract.
func (s *Scheduler) Stop() {
	s.cron.Stop()

	deadline := time.Now().Add(shutdownGrace)
	for s.cron.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
	}

	log.Println("scheduler stopped")
}

package broker

import (
	"time"

	"golang.org/x/time/rate"
)

// newLimiter builds a token-bucket limiter from the configured requests-
// per-window budget, following the *rate.Limiter field + rate.Wait(ctx)
// idiom used throughout the pack's exchange drivers (one limiter per
// client, blocking acquisition before each call rather than dropping
// requests).
func newLimiter(requests int, window time.Duration) *rate.Limiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	perSecond := float64(requests) / window.Seconds()
	burst := requests
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

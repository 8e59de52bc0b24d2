package broker

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"time"
)

// retryConfig mirrors the exponential-backoff-with-jitter shape used
// elsewhere in the pack's fault-tolerance helpers, re-expressed with the
// teacher's stdlib log instead of a structured logger.
type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	multiplier  float64
	jitter      float64
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxAttempts: 5,
		baseDelay:   1 * time.Second,
		maxDelay:    60 * time.Second,
		multiplier:  2.0,
		jitter:      0.2,
	}
}

// withRetry runs fn, retrying on errors classified as transient by
// isRetryable, up to cfg.maxAttempts. Non-retryable errors (auth, bad
// request, parse) return immediately.
func withRetry(ctx context.Context, cfg retryConfig, name string, fn func() error) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == cfg.maxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt, rng)
		log.Printf("broker: %s attempt %d failed: %v, retrying in %v", name, attempt, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func backoffDelay(cfg retryConfig, attempt int, rng *rand.Rand) time.Duration {
	d := float64(cfg.baseDelay) * math.Pow(cfg.multiplier, float64(attempt-1))
	if d > float64(cfg.maxDelay) {
		d = float64(cfg.maxDelay)
	}
	if cfg.jitter > 0 {
		j := rng.Float64() * cfg.jitter * d
		if rng.Float64() < 0.5 {
			d -= j
		} else {
			d += j
		}
	}
	if d < float64(cfg.baseDelay) {
		d = float64(cfg.baseDelay)
	}
	return time.Duration(d)
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRateLimited)
}

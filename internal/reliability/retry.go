// Package reliability provides bounded retry with exponential backoff for
// transient storage failures. Only idempotent lookup paths go through here;
// mutating operations fail closed on ambiguity and are never retried.
package reliability

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Config holds configuration for retry operations.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the initial one.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
	// Multiplier for exponential backoff.
	Multiplier float64
	// Jitter adds randomness in [0,1] to delay calculations.
	Jitter float64
	// ShouldRetry decides whether an error warrants another attempt.
	ShouldRetry func(err error, attempt int) bool
}

// DefaultConfig returns a small bounded policy suitable for lookup paths.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
		ShouldRetry: func(err error, attempt int) bool {
			return err != nil
		},
	}
}

// Do runs op, retrying per cfg. Context cancellation aborts the wait between
// attempts and returns the context error.
func Do(ctx context.Context, cfg Config, op func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = DefaultConfig().ShouldRetry
	}

	var err error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delayFor(cfg, attempt)):
			}
		}

		if err = op(); err == nil {
			return nil
		}
		if !cfg.ShouldRetry(err, attempt) {
			return err
		}
	}
	return err
}

func delayFor(cfg Config, attempt int) time.Duration {
	base := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.Jitter > 0 {
		base += base * cfg.Jitter * (rand.Float64()*2 - 1)
	}
	d := time.Duration(base)
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

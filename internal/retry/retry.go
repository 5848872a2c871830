// Package retry runs a step under a bounded exponential backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/chal0326/researchcms/internal/config"
)

const (
	DefaultMaxAttempts       = 3
	DefaultInitialDelay      = 10 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// Policy bounds the attempts of one step. Attempt n (1-based) waits
// InitialDelay * BackoffMultiplier^(n-2) before running.
type Policy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       DefaultMaxAttempts,
		InitialDelay:      DefaultInitialDelay,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

func FromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	p.InitialDelay = config.Duration(cfg.InitialDelay, p.InitialDelay)
	if cfg.BackoffMultiplier >= 1 {
		p.BackoffMultiplier = cfg.BackoffMultiplier
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialDelay
	eb.Multiplier = p.BackoffMultiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = time.Duration(float64(p.InitialDelay) * pow(p.BackoffMultiplier, p.MaxAttempts))
	eb.MaxElapsedTime = 0

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return fn(ctx, attempt)
	}, p.backOff(ctx))
}

func pow(base float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= base
	}
	return out
}

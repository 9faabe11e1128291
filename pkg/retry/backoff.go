// Package retry runs an operation again after transient failures.
package retry

import (
	"context"
	"time"
)

// Backoff computes the delay before the next retry attempt.
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff grows delays by powers of two, capped at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

// Next returns the delay for the given attempt (1-based).
func (b ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := b.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	delay := base << (attempt - 1)
	if delay <= 0 || (b.Max > 0 && delay > b.Max) {
		return b.Max
	}
	return delay
}

// DefaultBackoff returns the default exponential retry policy.
func DefaultBackoff() Backoff {
	return ExponentialBackoff{
		Base: 100 * time.Millisecond,
		Max:  5 * time.Second,
	}
}

// Policy bounds how often Do calls an operation. Attempts below one mean a
// single call.
type Policy struct {
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
}

// Do calls fn until it succeeds, returns a non-retryable error, the attempts
// are spent or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := policy.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || ctx.Err() != nil {
			return err
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}
		timer := time.NewTimer(backoff.Next(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

// Package retry implements the exponential-backoff executor that wraps every
// external call the engine makes (LLM generation, classification, extraction,
// database commits, lead creation). Failure policy is declared once per call
// site through the retryable predicate instead of being embedded in control
// flow.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	logx "github.com/coverline/engine/pkg/logger"
)

// Policy is an immutable retry configuration passed in per call site.
type Policy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultPolicy suits most LLM API call sites.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 10 * time.Second
	}
	if p.ExponentialBase < 1.0 {
		p.ExponentialBase = 2.0
	}
	return p
}

// Delay returns the wait before the retry that follows the given attempt
// (attempts counted from 1): min(maxDelay, initial * base^(attempt-1)),
// jittered by ±10% when enabled.
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.ExponentialBase, float64(attempt-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter {
		jitter := d * 0.1
		d += (rand.Float64()*2 - 1) * jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do executes op, retrying on failure up to policy.MaxAttempts with
// exponential backoff. When retryable returns false for an error, Do fails
// immediately. On exhaustion the last error is surfaced; Do never substitutes
// a default value for a failure. A nil retryable predicate retries every
// error.
func Do[T any](ctx context.Context, name string, policy Policy, op func(context.Context) (T, error), retryable func(error) bool) (T, error) {
	var zero T
	policy = policy.normalized()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logx.Info().Str("operation", name).Int("attempt", attempt).Msg("operation succeeded after retry")
			}
			return result, nil
		}
		lastErr = err

		if retryable != nil && !retryable(err) {
			logx.Warn().Str("operation", name).Err(err).Msg("non-retryable error")
			return zero, err
		}

		if attempt >= policy.MaxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		logx.Warn().
			Str("operation", name).
			Int("attempt", attempt).
			Int("max_attempts", policy.MaxAttempts).
			Dur("delay", delay).
			Err(err).
			Msg("operation failed, retrying")

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s canceled during backoff: %w", name, ctx.Err())
		case <-time.After(delay):
		}
	}

	logx.Error().
		Str("operation", name).
		Int("attempts", policy.MaxAttempts).
		Err(lastErr).
		Msg("operation failed after all attempts")
	return zero, lastErr
}

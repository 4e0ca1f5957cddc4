// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often and how fast an operation is retried.
//
// With Multiplier <= 1 the delay between attempts is fixed at InitialDelay,
// matching the classic "try every 5 seconds, 10 times" behaviour. Larger
// multipliers grow the delay exponentially up to MaxDelay.
type RetryPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	MaxAttempts  int
}

// DefaultRetryPolicy returns 10 attempts spaced 5 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: 5 * time.Second,
		MaxDelay:     5 * time.Second,
		Multiplier:   1,
		MaxAttempts:  10,
	}
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max attempts must be at least 1", ErrInvalidConfig)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("%w: retry delays must not be negative", ErrInvalidConfig)
	}
	if p.Multiplier > 1 && p.MaxDelay < p.InitialDelay {
		return fmt.Errorf("%w: retry max delay must be at least the initial delay", ErrInvalidConfig)
	}
	return nil
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.Multiplier <= 1 {
		return backoff.NewConstantBackOff(p.InitialDelay)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Permanent marks err so that RetryPolicy.Do returns it without retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a Permanent error, ctx ends, or
// MaxAttempts is reached. attempt starts at 1. notify, if set, is called
// after each failed attempt that will be retried.
//
// On exhaustion the returned error matches ErrConnectionExhausted and wraps
// the last failure.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error, notify func(err error, attempt int, wait time.Duration)) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	var lastErr error
	operation := func() error {
		attempt++
		lastErr = op(attempt)
		return lastErr
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) {
			notify(err, attempt, wait)
		}
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(), uint64(maxAttempts-1)), ctx)
	err := backoff.RetryNotify(operation, b, onRetry)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(lastErr, &permanent) {
		return permanent.Err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrConnectionExhausted, attempt, lastErr)
}

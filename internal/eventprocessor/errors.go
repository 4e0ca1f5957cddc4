// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import "errors"

// ErrInvalidInput is returned by Producer.Submit when the submission fails
// validation. The wrapped *validation.RequestValidationError carries the
// per-field details.
var ErrInvalidInput = errors.New("invalid reading")

// ErrQueueUnavailable is returned when the queue cannot accept a publish:
// the connection is not established, the broker refused the message, or the
// circuit breaker is open.
var ErrQueueUnavailable = errors.New("queue unavailable")

// ErrPoisonMessage marks a delivered message that can never be applied.
var ErrPoisonMessage = errors.New("poison message")

// ErrConnectionExhausted is returned by Connection.Run when every retry
// attempt failed. It is fatal for the process.
var ErrConnectionExhausted = errors.New("broker connection retries exhausted")

// ErrQueueMismatch is returned when the queue already exists with
// parameters that differ from the configured ones. It is never retried.
var ErrQueueMismatch = errors.New("queue exists with different parameters")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// IsFatal reports whether err should stop the process instead of being
// retried by a supervisor.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConnectionExhausted) ||
		errors.Is(err, ErrQueueMismatch) ||
		errors.Is(err, ErrInvalidConfig)
}

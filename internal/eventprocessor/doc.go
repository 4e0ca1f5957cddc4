// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package eventprocessor moves readings from submitters to the aggregator
through a durable queue.

# Architecture

	HTTP handler ──► Producer.Submit ──► Connection(producer) ──► queue
	                                                                │
	Aggregator ◄── Connection(aggregator) ◄─────────────────────────┘

Each side owns a Connection. A Connection dials a Backend, declares the
queue, and hands the resulting Session to a caller function. When the broker
link drops, the Session's Done channel closes, the caller's context is
canceled, and the Connection dials again under its RetryPolicy. After
MaxAttempts consecutive failures Run returns ErrConnectionExhausted, which
the process treats as fatal.

# Backends

  - nats: JetStream through watermill-nats. The queue is a file-backed stream
    with a duplicate window, so a publish is acknowledged only after it is
    on disk and a retried publish with the same event id is dropped. The
    aggregator binds to a durable push consumer with one unacknowledged
    message in flight.
  - redis: Redis streams through watermill-redisstream, with a consumer group
    for the aggregator.
  - memory: watermill's gochannel, process-local and not durable. It can
    simulate an outage with SetAvailable(false).

An existing queue whose parameters differ from the configured ones is never
modified; declaring it fails with ErrQueueMismatch.

# Errors

  - ErrInvalidInput: submission failed validation, nothing was published
  - ErrQueueUnavailable: not connected, publish refused, or breaker open
  - ErrPoisonMessage: a delivered message can never be applied
  - ErrConnectionExhausted, ErrQueueMismatch: fatal connection failures
*/
package eventprocessor

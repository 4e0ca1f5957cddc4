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

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/metrics"
	"github.com/tomtom215/marathon/internal/models"
	"github.com/tomtom215/marathon/internal/validation"
)

// Metadata keys set on published messages.
const (
	MetadataMarathonID    = "marathon_id"
	MetadataParticipantID = "participant_id"
)

// ProducerConfig configures a Producer.
type ProducerConfig struct {
	MarathonID string
	Topic      string
	Breaker    CircuitBreakerConfig
}

// Producer validates reading submissions and publishes them to the queue
// over its own supervised Connection. Submit is safe for concurrent use.
type Producer struct {
	conn       *Connection
	topic      string
	marathonID string
	breaker    *gobreaker.CircuitBreaker[struct{}]

	now   func() time.Time
	newID func() string
}

// NewProducer creates a producer publishing through conn.
func NewProducer(conn *Connection, cfg ProducerConfig) *Producer {
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultCircuitBreakerConfig("producer")
	}
	return &Producer{
		conn:       conn,
		topic:      cfg.Topic,
		marathonID: cfg.MarathonID,
		breaker:    NewCircuitBreaker(cfg.Breaker),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetClock replaces the timestamp source, for tests.
func (p *Producer) SetClock(now func() time.Time) {
	p.now = now
}

// Connection returns the producer's broker connection.
func (p *Producer) Connection() *Connection {
	return p.conn
}

// Run keeps the producer's connection open until ctx ends.
func (p *Producer) Run(ctx context.Context) error {
	return p.conn.Run(ctx, func(ctx context.Context, _ Session) error {
		<-ctx.Done()
		return nil
	})
}

// Submit validates in, stamps it and publishes it exactly once.
//
// It returns an error matching ErrInvalidInput (wrapping a
// *validation.RequestValidationError) when in is malformed, and one matching
// ErrQueueUnavailable when the broker cannot take the message. Nothing is
// retried here; the caller decides whether to resubmit.
func (p *Producer) Submit(ctx context.Context, in *models.ReadingInput) (*models.ReadingEvent, error) {
	if in == nil {
		metrics.RecordSubmission("invalid")
		return nil, fmt.Errorf("%w: empty submission", ErrInvalidInput)
	}

	in.Normalize()
	if verr := validation.ValidateStruct(in); verr != nil {
		metrics.RecordSubmission("invalid")
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, verr)
	}

	session, err := p.conn.Session()
	if err != nil {
		metrics.RecordSubmission("unavailable")
		return nil, err
	}
	publisher := session.Publisher()
	if publisher == nil {
		metrics.RecordSubmission("unavailable")
		return nil, fmt.Errorf("%w: connection %s cannot publish", ErrQueueUnavailable, p.conn.Name())
	}

	event := in.Event(p.newID(), p.marathonID, p.now())
	payload, err := EncodeEvent(event)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.Metadata.Set(MetadataMarathonID, event.MarathonID)
	msg.Metadata.Set(MetadataParticipantID, event.ParticipantID)
	msg.SetContext(ctx)

	start := time.Now()
	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, publisher.Publish(p.topic, msg)
	})
	metrics.RecordPublish(time.Since(start))
	if err != nil {
		metrics.RecordSubmission("unavailable")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: publishing paused after repeated failures: %w", ErrQueueUnavailable, err)
		}
		return nil, fmt.Errorf("%w: publish reading: %w", ErrQueueUnavailable, err)
	}

	metrics.RecordSubmission("accepted")
	logging.Ctx(ctx).Debug().
		Str("event_id", event.EventID).
		Str("participant_id", event.ParticipantID).
		Int64("pages_read", event.PagesRead).
		Msg("reading published")
	return event, nil
}

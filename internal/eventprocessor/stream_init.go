// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used to declare the
// queue stream.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// ConsumerManager is the subset of natsgo.JetStreamContext used to declare
// the durable push consumer the aggregator binds to.
type ConsumerManager interface {
	AddConsumer(stream string, cfg *natsgo.ConsumerConfig, opts ...natsgo.JSOpt) (*natsgo.ConsumerInfo, error)
}

// StreamConfig describes the JetStream stream backing one queue.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// QueueStreamConfig returns the stream for queue: file storage, limits
// retention, and subjects for the queue and its poison topic.
func QueueStreamConfig(queue string, cfg NATSConfig) StreamConfig {
	return StreamConfig{
		Name:            StreamName(queue),
		Subjects:        []string{queue, PoisonTopic(queue)},
		MaxAge:          cfg.MaxAge,
		DuplicateWindow: cfg.DuplicateWindow,
	}
}

// StreamName derives a valid stream name from a queue name.
func StreamName(queue string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return unicode.ToUpper(r)
		}
		return '_'
	}, queue)
}

// StreamInitializer declares the queue stream. Unlike a plain
// create-or-update it refuses to touch a stream whose durable parameters
// differ from the configured ones.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer creates a stream initializer.
func NewStreamInitializer(js JetStreamContext, cfg *StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("stream config required")
	}
	return &StreamInitializer{js: js, config: *cfg}, nil
}

func (s *StreamInitializer) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       s.config.Name,
		Subjects:   s.config.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     s.config.MaxAge,
		MaxMsgs:    -1,
		MaxBytes:   -1,
		Duplicates: s.config.DuplicateWindow,
		Replicas:   1,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream if it is missing. An existing stream with
// the same parameters is left as is; one with different subjects, storage,
// retention, duplicate window or max age yields ErrQueueMismatch.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	want := s.streamConfig()

	stream, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		var have jetstream.StreamConfig
		if info := stream.CachedInfo(); info != nil {
			have = info.Config
		} else {
			info, err := stream.Info(ctx)
			if err != nil {
				return nil, fmt.Errorf("inspect stream %s: %w", s.config.Name, err)
			}
			have = info.Config
		}
		if diff := compareStreamConfig(have, want); diff != "" {
			return nil, fmt.Errorf("%w: stream %s %s", ErrQueueMismatch, s.config.Name, diff)
		}
		return stream, nil
	}

	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
	}

	stream, err = s.js.CreateStream(ctx, want)
	if err != nil {
		if errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("%w: stream %s: %w", ErrQueueMismatch, s.config.Name, err)
		}
		return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
	}
	return stream, nil
}

// compareStreamConfig returns a description of the first difference that
// matters for durability, or "".
func compareStreamConfig(have, want jetstream.StreamConfig) string {
	haveSubjects := slices.Clone(have.Subjects)
	wantSubjects := slices.Clone(want.Subjects)
	slices.Sort(haveSubjects)
	slices.Sort(wantSubjects)

	switch {
	case !slices.Equal(haveSubjects, wantSubjects):
		return fmt.Sprintf("has subjects %v, want %v", have.Subjects, want.Subjects)
	case have.Storage != want.Storage:
		return fmt.Sprintf("has storage %s, want %s", have.Storage, want.Storage)
	case have.Retention != want.Retention:
		return fmt.Sprintf("has retention %s, want %s", have.Retention, want.Retention)
	case have.Duplicates != want.Duplicates:
		return fmt.Sprintf("has duplicate window %s, want %s", have.Duplicates, want.Duplicates)
	case have.MaxAge != want.MaxAge:
		return fmt.Sprintf("has max age %s, want %s", have.MaxAge, want.MaxAge)
	}
	return ""
}

// DeliverSubject returns the push subject of a durable consumer.
func DeliverSubject(durable string) string {
	return "_marathon.deliver." + durable
}

// ConsumerConfig returns the durable push consumer for queue: explicit acks,
// the whole backlog on first creation, and one message in flight.
func ConsumerConfig(queue string, cfg NATSConfig) *natsgo.ConsumerConfig {
	return &natsgo.ConsumerConfig{
		Durable:        cfg.DurableName,
		DeliverSubject: DeliverSubject(cfg.DurableName),
		AckPolicy:      natsgo.AckExplicitPolicy,
		DeliverPolicy:  natsgo.DeliverAllPolicy,
		AckWait:        cfg.AckWait,
		MaxDeliver:     -1,
		MaxAckPending:  1,
		FilterSubject:  queue,
	}
}

// EnsureConsumer declares the durable consumer on stream. Re-declaring an
// identical consumer is a no-op; a different one yields ErrQueueMismatch.
func EnsureConsumer(cm ConsumerManager, stream string, cfg *natsgo.ConsumerConfig) error {
	if _, err := cm.AddConsumer(stream, cfg); err != nil {
		if errors.Is(err, natsgo.ErrConsumerNameAlreadyInUse) {
			return fmt.Errorf("%w: consumer %s on %s: %w", ErrQueueMismatch, cfg.Durable, stream, err)
		}
		return fmt.Errorf("create consumer %s on %s: %w", cfg.Durable, stream, err)
	}
	return nil
}

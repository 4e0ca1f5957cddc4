// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSBackend dials JetStream sessions.
//
// Every connection is opened with NoReconnect: when the server goes away the
// session reports Done and the owning Connection dials a fresh one, so there
// is exactly one place that decides how reconnection works.
type NATSBackend struct {
	url    string
	queue  string
	config NATSConfig
	logger watermill.LoggerAdapter
}

// NewNATSBackend creates a backend for the JetStream server at url.
func NewNATSBackend(url, queue string, cfg NATSConfig, logger watermill.LoggerAdapter) *NATSBackend {
	if logger == nil {
		logger = NewWatermillLogger("nats")
	}
	return &NATSBackend{url: url, queue: queue, config: cfg, logger: logger}
}

// Name implements Backend.
func (b *NATSBackend) Name() string {
	return BackendNATS
}

// Dial implements Backend.
func (b *NATSBackend) Dial(ctx context.Context, role Role) (Session, error) {
	s := &natsSession{
		backend: b,
		role:    role,
		done:    make(chan struct{}),
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("marathon"),
		natsgo.NoReconnect(),
		natsgo.Timeout(b.config.ConnectTimeout),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			s.markDone()
		}),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				b.logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			b.logger.Error("NATS error", err, fields)
		}),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nc, err := natsgo.Connect(b.url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", b.url, err)
	}
	s.conn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	s.js = js

	if role.Has(RolePublisher) {
		pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
			URL:         b.url,
			NatsOptions: natsOpts,
			Marshaler:   &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false, // declared by DeclareQueue
				TrackMsgId:    true,  // Nats-Msg-Id = message UUID = event id
				PublishOptions: []natsgo.PubOpt{
					natsgo.RetryAttempts(3),
					natsgo.RetryWait(100 * time.Millisecond),
				},
			},
		}, b.logger)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("create watermill publisher: %w", err)
		}
		s.publisher = pub
	}

	if role.Has(RoleSubscriber) {
		sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
			URL:              b.url,
			SubscribersCount: 1,
			AckWaitTimeout:   b.config.AckWait,
			CloseTimeout:     5 * time.Second,
			NatsOptions:      natsOpts,
			Unmarshaler:      &wmNats.NATSMarshaler{},
			JetStream:        b.subscriberJetStream(),
		}, b.logger)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("create watermill subscriber: %w", err)
		}
		s.subscriber = sub
	}

	return s, nil
}

// subscriberJetStream binds to the stream and the durable consumer that
// DeclareQueue creates. DurablePrefix makes watermill subscribe with
// nats.Durable; without it watermill adds BindStream("") and the subscribe
// is rejected.
func (b *NATSBackend) subscriberJetStream() wmNats.JetStreamConfig {
	return wmNats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		AckAsync:      false,
		SubscribeOptions: []natsgo.SubOpt{
			natsgo.BindStream(StreamName(b.queue)),
			natsgo.ManualAck(),
		},
		DurablePrefix: b.config.DurableName,
	}
}

type natsSession struct {
	backend *NATSBackend
	role    Role

	conn       *natsgo.Conn
	js         jetstream.JetStream
	publisher  message.Publisher
	subscriber message.Subscriber

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

func (s *natsSession) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *natsSession) Publisher() message.Publisher   { return s.publisher }
func (s *natsSession) Subscriber() message.Subscriber { return s.subscriber }
func (s *natsSession) Done() <-chan struct{}          { return s.done }

// DeclareQueue creates the stream and, for consuming sessions, the durable
// consumer.
func (s *natsSession) DeclareQueue(ctx context.Context) error {
	streamCfg := QueueStreamConfig(s.backend.queue, s.backend.config)
	initializer, err := NewStreamInitializer(s.js, &streamCfg)
	if err != nil {
		return err
	}
	if _, err := initializer.EnsureStream(ctx); err != nil {
		return err
	}

	if !s.role.Has(RoleSubscriber) {
		return nil
	}
	legacy, err := s.conn.JetStream()
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	return EnsureConsumer(legacy, streamCfg.Name, ConsumerConfig(s.backend.queue, s.backend.config))
}

func (s *natsSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.subscriber != nil {
			errs = append(errs, s.subscriber.Close())
		}
		if s.publisher != nil {
			errs = append(errs, s.publisher.Close())
		}
		if s.conn != nil {
			s.conn.Close()
		}
		s.markDone()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

var errBrokerDown = errors.New("memory broker unavailable")

// MemoryBackend is a process-local broker built on watermill's gochannel.
// It keeps every published message and replays them to each new
// subscription, so consumers must tolerate redelivery. It is meant for
// development and tests; nothing survives a restart.
//
// SetAvailable(false) simulates an outage: open sessions report Done,
// publishes fail and dials are refused until it is set back to true.
type MemoryBackend struct {
	pubsub *gochannel.GoChannel

	mu        sync.Mutex
	available bool
	sessions  map[*memorySession]struct{}
}

// NewMemoryBackend creates an available in-memory broker.
func NewMemoryBackend(logger watermill.LoggerAdapter) *MemoryBackend {
	if logger == nil {
		logger = NewWatermillLogger("memory")
	}
	return &MemoryBackend{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          true,
		}, logger),
		available: true,
		sessions:  make(map[*memorySession]struct{}),
	}
}

// Name implements Backend.
func (b *MemoryBackend) Name() string {
	return BackendMemory
}

// SetAvailable turns the simulated broker on or off.
func (b *MemoryBackend) SetAvailable(available bool) {
	b.mu.Lock()
	b.available = available
	var lost []*memorySession
	if !available {
		for s := range b.sessions {
			lost = append(lost, s)
		}
	}
	b.mu.Unlock()

	for _, s := range lost {
		s.markDone()
	}
}

// Available reports whether the simulated broker is up.
func (b *MemoryBackend) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Dial implements Backend.
func (b *MemoryBackend) Dial(ctx context.Context, role Role) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return nil, fmt.Errorf("dial memory broker: %w", errBrokerDown)
	}

	s := &memorySession{backend: b, role: role, done: make(chan struct{})}
	b.sessions[s] = struct{}{}
	return s, nil
}

// Close shuts the underlying gochannel down.
func (b *MemoryBackend) Close() error {
	return b.pubsub.Close()
}

func (b *MemoryBackend) forget(s *memorySession) {
	b.mu.Lock()
	delete(b.sessions, s)
	b.mu.Unlock()
}

type memorySession struct {
	backend *MemoryBackend
	role    Role

	done     chan struct{}
	doneOnce sync.Once
}

func (s *memorySession) markDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *memorySession) Publisher() message.Publisher {
	if !s.role.Has(RolePublisher) {
		return nil
	}
	return memoryPublisher{s}
}

func (s *memorySession) Subscriber() message.Subscriber {
	if !s.role.Has(RoleSubscriber) {
		return nil
	}
	return memorySubscriber{s}
}

func (s *memorySession) DeclareQueue(context.Context) error {
	if !s.backend.Available() {
		return fmt.Errorf("declare queue: %w", errBrokerDown)
	}
	return nil
}

func (s *memorySession) Done() <-chan struct{} { return s.done }

func (s *memorySession) Close() error {
	s.backend.forget(s)
	s.markDone()
	return nil
}

func (s *memorySession) alive() error {
	select {
	case <-s.done:
		return fmt.Errorf("memory session closed: %w", errBrokerDown)
	default:
	}
	if !s.backend.Available() {
		return errBrokerDown
	}
	return nil
}

// memoryPublisher and memorySubscriber share the backend's gochannel;
// closing them only detaches the session.
type memoryPublisher struct{ s *memorySession }

func (p memoryPublisher) Publish(topic string, msgs ...*message.Message) error {
	if err := p.s.alive(); err != nil {
		return err
	}
	return p.s.backend.pubsub.Publish(topic, msgs...)
}

func (p memoryPublisher) Close() error { return nil }

type memorySubscriber struct{ s *memorySession }

func (m memorySubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if err := m.s.alive(); err != nil {
		return nil, err
	}
	return m.s.backend.pubsub.Subscribe(ctx, topic)
}

func (m memorySubscriber) Close() error { return nil }

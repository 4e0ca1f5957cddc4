// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/marathon/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		InitialDelay: 2 * time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   1,
		MaxAttempts:  attempts,
	}
}

// eventually polls cond until it holds or the timeout passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s: %s", timeout, msg)
}

var errDialRefused = errors.New("connection refused")

// fakeBackend hands out fakeSessions, failing the first failDials dials.
type fakeBackend struct {
	failDials  int32 // -1 fails forever
	declareErr error
	publishErr error

	dials atomic.Int32

	mu       sync.Mutex
	sessions []*fakeSession
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) Dial(ctx context.Context, role Role) (Session, error) {
	n := b.dials.Add(1)
	if b.failDials < 0 || n <= b.failDials {
		return nil, errDialRefused
	}
	s := &fakeSession{role: role, done: make(chan struct{}), declareErr: b.declareErr, publishErr: b.publishErr}
	b.mu.Lock()
	b.sessions = append(b.sessions, s)
	b.mu.Unlock()
	return s, nil
}

func (b *fakeBackend) last() *fakeSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sessions) == 0 {
		return nil
	}
	return b.sessions[len(b.sessions)-1]
}

type fakeSession struct {
	role       Role
	declareErr error
	publishErr error

	done     chan struct{}
	doneOnce sync.Once
	closed   atomic.Bool

	mu        sync.Mutex
	published []*message.Message
}

func (s *fakeSession) Publisher() message.Publisher   { return fakePublisher{s} }
func (s *fakeSession) Subscriber() message.Subscriber { return nil }
func (s *fakeSession) DeclareQueue(context.Context) error {
	return s.declareErr
}
func (s *fakeSession) Done() <-chan struct{} { return s.done }
func (s *fakeSession) Close() error {
	s.closed.Store(true)
	s.lose()
	return nil
}
func (s *fakeSession) lose() { s.doneOnce.Do(func() { close(s.done) }) }

type fakePublisher struct{ s *fakeSession }

func (p fakePublisher) Publish(_ string, msgs ...*message.Message) error {
	if p.s.publishErr != nil {
		return p.s.publishErr
	}
	p.s.mu.Lock()
	p.s.published = append(p.s.published, msgs...)
	p.s.mu.Unlock()
	return nil
}

func (p fakePublisher) Close() error { return nil }

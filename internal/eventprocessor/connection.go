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

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/metrics"
)

// ConnState is the lifecycle state of a broker connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Role selects which sides of a session a backend has to open.
type Role uint8

const (
	RolePublisher Role = 1 << iota
	RoleSubscriber
)

// Has reports whether r includes other.
func (r Role) Has(other Role) bool {
	return r&other != 0
}

// Session is one live link to the broker. It is discarded as a whole when
// the link is lost; nothing in it is reused across reconnects.
type Session interface {
	// Publisher is nil unless the session was dialed with RolePublisher.
	Publisher() message.Publisher
	// Subscriber is nil unless the session was dialed with RoleSubscriber.
	Subscriber() message.Subscriber
	// DeclareQueue makes sure the queue exists with the configured
	// parameters, returning an error matching ErrQueueMismatch when it
	// exists with different ones. Calling it again is a no-op.
	DeclareQueue(ctx context.Context) error
	// Done is closed when the broker link is lost or the session closed.
	Done() <-chan struct{}
	Close() error
}

// Backend opens sessions against one kind of broker.
type Backend interface {
	Name() string
	Dial(ctx context.Context, role Role) (Session, error)
}

// Connection owns the lifecycle of one broker link: it dials with a retry
// policy, declares the queue, hands the session to a caller-supplied
// function, and reconnects when the link drops.
//
// Producer and aggregator each use their own Connection.
type Connection struct {
	name    string
	backend Backend
	role    Role
	policy  RetryPolicy
	logger  zerolog.Logger

	mu      sync.RWMutex
	state   ConnState
	session Session
	changed chan struct{}
}

// NewConnection creates a Connection in the Disconnected state.
func NewConnection(name string, backend Backend, role Role, policy RetryPolicy) *Connection {
	c := &Connection{
		name:    name,
		backend: backend,
		role:    role,
		policy:  policy,
		logger:  logging.With().Str("component", "connection").Str("connection", name).Str("backend", backend.Name()).Logger(),
		changed: make(chan struct{}),
	}
	metrics.RecordConnectionState(name, int(StateDisconnected))
	return c
}

// Name returns the connection name used in logs and metrics.
func (c *Connection) Name() string {
	return c.name
}

// State returns the current state. A Connected session that has already
// reported Done counts as Disconnected, even before Run notices.
func (c *Connection) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked()
}

// Session returns the live session, or ErrQueueUnavailable when the
// connection is not Connected or its session was lost.
func (c *Connection) Session() (Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if state := c.stateLocked(); state != StateConnected {
		return nil, fmt.Errorf("%w: connection %s is %s", ErrQueueUnavailable, c.name, state)
	}
	return c.session, nil
}

// WaitConnected blocks until the connection has a live session or ctx
// ends.
func (c *Connection) WaitConnected(ctx context.Context) error {
	for {
		c.mu.RLock()
		state, changed := c.stateLocked(), c.changed
		c.mu.RUnlock()

		switch state {
		case StateConnected:
			return nil
		case StateClosed:
			return fmt.Errorf("%w: connection %s is closed", ErrQueueUnavailable, c.name)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// stateLocked must be called with mu held.
func (c *Connection) stateLocked() ConnState {
	if c.state != StateConnected {
		return c.state
	}
	if c.session == nil || sessionDone(c.session) {
		return StateDisconnected
	}
	return StateConnected
}

func sessionDone(s Session) bool {
	select {
	case <-s.Done():
		return true
	default:
		return false
	}
}

func (c *Connection) setState(state ConnState, session Session) {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.session = session
	close(c.changed)
	c.changed = make(chan struct{})
	c.mu.Unlock()

	metrics.RecordConnectionState(c.name, int(state))
	if prev != state {
		c.logger.Debug().Str("from", prev.String()).Str("to", state.String()).Msg("connection state changed")
	}
}

// Run keeps a session open until ctx ends, calling fn with each new
// session. fn's context is canceled when the session is lost; fn should
// then return so that Run can reconnect.
//
// Run returns ctx.Err() on shutdown, an error matching
// ErrConnectionExhausted when the retry budget is spent, or an error
// matching ErrQueueMismatch when the queue cannot be declared.
func (c *Connection) Run(ctx context.Context, fn func(ctx context.Context, session Session) error) error {
	defer c.setState(StateClosed, nil)

	for {
		session, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateClosing, nil)
				return ctx.Err()
			}
			c.logger.Error().Err(err).Msg("giving up on broker connection")
			return err
		}

		c.setState(StateConnected, session)
		c.logger.Info().Msg("broker connection established")

		lost, fnErr := c.serve(ctx, session, fn)

		if ctx.Err() != nil {
			c.setState(StateClosing, nil)
			c.closeSession(session)
			return ctx.Err()
		}

		c.setState(StateDisconnected, nil)
		c.closeSession(session)

		if lost {
			c.logger.Warn().Msg("broker connection lost, reconnecting")
			continue
		}

		// The link is healthy but the handler gave up; pause so a handler
		// that fails immediately does not spin.
		c.logger.Warn().Err(fnErr).Dur("retry_in", c.policy.InitialDelay).Msg("session handler stopped, reconnecting")
		if !sleepCtx(ctx, c.policy.InitialDelay) {
			c.setState(StateClosing, nil)
			return ctx.Err()
		}
	}
}

// serve runs fn until it returns, canceling it if the session is lost.
func (c *Connection) serve(ctx context.Context, session Session, fn func(context.Context, Session) error) (lost bool, err error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lostCh := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-session.Done():
			close(lostCh)
			cancel()
		case <-stop:
		}
	}()

	err = fn(sessionCtx, session)

	select {
	case <-lostCh:
		return true, err
	default:
		return false, err
	}
}

func (c *Connection) connect(ctx context.Context) (Session, error) {
	c.setState(StateConnecting, nil)

	var session Session
	err := c.policy.Do(ctx, func(attempt int) error {
		s, err := c.backend.Dial(ctx, c.role)
		metrics.RecordConnectionAttempt(c.name, err)
		if err != nil {
			return err
		}
		if err := s.DeclareQueue(ctx); err != nil {
			_ = s.Close()
			if errors.Is(err, ErrQueueMismatch) {
				return Permanent(err)
			}
			return err
		}
		session = s
		return nil
	}, func(err error, attempt int, wait time.Duration) {
		c.logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("max_attempts", c.policy.MaxAttempts).
			Dur("retry_in", wait).
			Msg("broker connection attempt failed")
	})
	if err != nil {
		return nil, fmt.Errorf("connection %s: %w", c.name, err)
	}
	return session, nil
}

func (c *Connection) closeSession(session Session) {
	if err := session.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("error closing broker session")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

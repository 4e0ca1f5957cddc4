// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package services

import (
	"context"
	"fmt"
	"time"
)

// EmbeddedBroker is the lifecycle of an in-process broker that is already
// accepting connections.
//
// Satisfied by *eventprocessor.EmbeddedServer.
type EmbeddedBroker interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// BrokerService keeps an embedded broker alive for the life of the tree and
// shuts it down when the tree stops.
type BrokerService struct {
	broker          EmbeddedBroker
	shutdownTimeout time.Duration
	name            string
}

// NewBrokerService wraps broker. Non-positive timeouts mean 10s.
func NewBrokerService(broker EmbeddedBroker, shutdownTimeout time.Duration) *BrokerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &BrokerService{
		broker:          broker,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-server",
	}
}

// Serve implements suture.Service. A broker that is no longer running
// cannot be restarted in place, so Serve reports it as a failure.
func (s *BrokerService) Serve(ctx context.Context) error {
	if !s.broker.IsRunning() {
		return fmt.Errorf("embedded broker is not running")
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()

	if err := s.broker.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("embedded broker shutdown failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer.
func (s *BrokerService) String() string {
	return s.name
}

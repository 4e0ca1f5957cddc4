// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package config

import (
	"github.com/tomtom215/marathon/internal/eventprocessor"
)

// EventBroker returns the broker settings for the event processor. With an
// embedded NATS server the URL points at it.
func (c *Config) EventBroker() eventprocessor.BrokerConfig {
	brokerURL := c.Broker.URL
	if c.Broker.Backend == eventprocessor.BackendNATS && c.NATS.Embedded {
		brokerURL = c.NATS.ClientURL()
	}

	return eventprocessor.BrokerConfig{
		Backend: c.Broker.Backend,
		URL:     brokerURL,
		Queue:   c.Broker.Queue,
		Retry: eventprocessor.RetryPolicy{
			InitialDelay: c.Broker.RetryDelay,
			MaxDelay:     c.Broker.RetryMaxDelay,
			Multiplier:   c.Broker.RetryMultiplier,
			MaxAttempts:  c.Broker.MaxRetries,
		},
		NATS: eventprocessor.NATSConfig{
			DurableName:     c.NATS.DurableName,
			DuplicateWindow: c.NATS.DuplicateWindow,
			MaxAge:          c.NATS.MaxAge,
			AckWait:         c.NATS.AckWait,
			ConnectTimeout:  c.NATS.ConnectTimeout,
		},
		Redis: eventprocessor.RedisConfig{
			ConsumerGroup: c.Redis.ConsumerGroup,
			Consumer:      c.Redis.Consumer,
			PingInterval:  c.Redis.PingInterval,
		},
	}
}

// EmbeddedServer returns the embedded NATS server settings.
func (c *Config) EmbeddedServer() *eventprocessor.ServerConfig {
	return &eventprocessor.ServerConfig{
		Host:              c.NATS.Host,
		Port:              c.NATS.Port,
		StoreDir:          c.NATS.StoreDir,
		JetStreamMaxMem:   c.NATS.MaxMemory,
		JetStreamMaxStore: c.NATS.MaxStore,
	}
}

// UseEmbeddedNATS reports whether the process should start its own broker.
func (c *Config) UseEmbeddedNATS() bool {
	return c.Broker.Backend == eventprocessor.BackendNATS && c.NATS.Embedded
}

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by BrokerConfig.Backend.
const (
	BackendNATS   = "nats"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// BrokerConfig selects and configures the queue backend.
type BrokerConfig struct {
	// Backend is nats, redis or memory.
	Backend string

	// URL is the broker address (nats://... or redis://...). Ignored by
	// the memory backend.
	URL string

	// Queue is the topic readings are published to. Poison messages go to
	// Queue + ".poison".
	Queue string

	Retry RetryPolicy

	NATS  NATSConfig
	Redis RedisConfig
}

// PoisonTopic returns the topic unprocessable messages are moved to.
func (c BrokerConfig) PoisonTopic() string {
	return PoisonTopic(c.Queue)
}

// PoisonTopic returns the poison topic for queue.
func PoisonTopic(queue string) string {
	return queue + ".poison"
}

// DefaultBrokerConfig returns the production defaults.
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		Backend: BackendNATS,
		URL:     "nats://127.0.0.1:4222",
		Queue:   "reading_marathon",
		Retry:   DefaultRetryPolicy(),
		NATS:    DefaultNATSConfig(),
		Redis:   DefaultRedisConfig(),
	}
}

// Validate checks the broker settings.
func (c BrokerConfig) Validate() error {
	switch c.Backend {
	case BackendNATS, BackendRedis:
		if c.URL == "" {
			return fmt.Errorf("%w: broker url is required for the %s backend", ErrInvalidConfig, c.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown broker backend %q", ErrInvalidConfig, c.Backend)
	}
	if strings.TrimSpace(c.Queue) == "" {
		return fmt.Errorf("%w: queue name is required", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Queue, " *>") {
		return fmt.Errorf("%w: queue name %q must not contain spaces or wildcards", ErrInvalidConfig, c.Queue)
	}
	return c.Retry.Validate()
}

// NATSConfig holds JetStream settings for the nats backend.
type NATSConfig struct {
	// DurableName is the consumer the aggregator reads through. Its
	// position survives restarts.
	DurableName string

	// DuplicateWindow is how long JetStream remembers Nats-Msg-Id values.
	DuplicateWindow time.Duration

	// MaxAge bounds how long unconsumed readings are kept.
	MaxAge time.Duration

	// AckWait is how long the server waits for an ack before redelivery.
	AckWait time.Duration

	// ConnectTimeout bounds a single dial.
	ConnectTimeout time.Duration
}

// DefaultNATSConfig returns production defaults for the nats backend.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		DurableName:     "aggregator",
		DuplicateWindow: 2 * time.Minute,
		MaxAge:          7 * 24 * time.Hour,
		AckWait:         30 * time.Second,
		ConnectTimeout:  5 * time.Second,
	}
}

// RedisConfig holds settings for the redis streams backend.
type RedisConfig struct {
	ConsumerGroup string
	Consumer      string
	PingInterval  time.Duration
}

// DefaultRedisConfig returns production defaults for the redis backend.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		ConsumerGroup: "aggregator",
		Consumer:      "aggregator-1",
		PingInterval:  2 * time.Second,
	}
}

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "./data/nats",
		JetStreamMaxMem:   256 << 20,
		JetStreamMaxStore: 1 << 30,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          5 * time.Second,
		FailureThreshold: 5,
	}
}

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import "fmt"

// NewBackend returns the backend cfg selects. One backend can serve both
// the producer and the aggregator; every Dial opens an independent session.
func NewBackend(cfg BrokerConfig) (Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case BackendNATS:
		return NewNATSBackend(cfg.URL, cfg.Queue, cfg.NATS, NewWatermillLogger("nats")), nil
	case BackendRedis:
		return NewRedisBackend(cfg.URL, cfg.Queue, cfg.Redis, NewWatermillLogger("redis")), nil
	case BackendMemory:
		return NewMemoryBackend(NewWatermillLogger("memory")), nil
	default:
		return nil, fmt.Errorf("%w: unknown broker backend %q", ErrInvalidConfig, cfg.Backend)
	}
}

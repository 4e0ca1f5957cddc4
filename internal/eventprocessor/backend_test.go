// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"errors"
	"testing"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		url      string
		wantName string
		wantErr  bool
	}{
		{"nats", BackendNATS, "nats://127.0.0.1:4222", BackendNATS, false},
		{"redis", BackendRedis, "redis://127.0.0.1:6379", BackendRedis, false},
		{"memory", BackendMemory, "", BackendMemory, false},
		{"nats without url", BackendNATS, "", "", true},
		{"unknown", "kafka", "kafka://x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBrokerConfig()
			cfg.Backend = tt.backend
			cfg.URL = tt.url

			b, err := NewBackend(cfg)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Fatalf("NewBackend() error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBackend() error = %v", err)
			}
			if b.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.wantName)
			}
		})
	}
}

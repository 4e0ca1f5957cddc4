// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/marathon/internal/eventprocessor"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"memory backend", func(c *Config) { c.Broker.Backend = "memory" }, ""},
		{"unknown backend", func(c *Config) { c.Broker.Backend = "kafka" }, "BROKER_BACKEND"},
		{"external nats needs url", func(c *Config) {
			c.NATS.Embedded = false
			c.Broker.URL = ""
		}, "BROKER_URL"},
		{"external nats wrong scheme", func(c *Config) {
			c.NATS.Embedded = false
			c.Broker.URL = "http://broker:4222"
		}, "BROKER_URL"},
		{"redis url", func(c *Config) {
			c.Broker.Backend = "redis"
			c.Broker.URL = "redis://localhost:6379"
		}, ""},
		{"redis wrong scheme", func(c *Config) {
			c.Broker.Backend = "redis"
			c.Broker.URL = "nats://localhost:4222"
		}, "BROKER_URL"},
		{"empty queue", func(c *Config) { c.Broker.Queue = " " }, "QUEUE"},
		{"wildcard queue", func(c *Config) { c.Broker.Queue = "readings.>" }, "wildcards"},
		{"zero retries", func(c *Config) { c.Broker.MaxRetries = 0 }, "BROKER_MAX_RETRIES"},
		{"zero retry delay", func(c *Config) { c.Broker.RetryDelay = 0 }, "BROKER_RETRY_DELAY"},
		{"max delay below delay", func(c *Config) { c.Broker.RetryMaxDelay = time.Second }, "BROKER_RETRY_MAX_DELAY"},
		{"shrinking backoff", func(c *Config) { c.Broker.RetryMultiplier = 0.5 }, "BROKER_RETRY_MULTIPLIER"},
		{"nats port", func(c *Config) { c.NATS.Port = 70000 }, "NATS_PORT"},
		{"nats memory", func(c *Config) { c.NATS.MaxMemory = 1024 }, "NATS_MAX_MEMORY"},
		{"nats durable", func(c *Config) { c.NATS.DurableName = "" }, "NATS_DURABLE_NAME"},
		{"nats checks skipped for memory", func(c *Config) {
			c.Broker.Backend = "memory"
			c.NATS.DurableName = ""
		}, ""},
		{"nats max age", func(c *Config) { c.NATS.MaxAge = time.Second }, "NATS_MAX_AGE"},
		{"empty marathon id", func(c *Config) { c.Marathon.ID = "" }, "MARATHON_ID"},
		{"recent activity zero", func(c *Config) { c.Marathon.RecentActivitySize = 0 }, "RECENT_ACTIVITY_SIZE"},
		{"dedup zero", func(c *Config) { c.Marathon.DedupWindow = 0 }, "DEDUP_WINDOW"},
		{"viewer buffer", func(c *Config) { c.Marathon.ViewerBuffer = 0 }, "VIEWER_BUFFER"},
		{"http port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"http timeout", func(c *Config) { c.Server.Timeout = 0 }, "HTTP_TIMEOUT"},
		{"no cors origins", func(c *Config) { c.Security.CORSOrigins = nil }, "CORS_ORIGINS"},
		{"rate limit zero", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
		{"snapshot without path", func(c *Config) {
			c.Snapshot.Enabled = true
			c.Snapshot.Path = ""
		}, "SNAPSHOT_PATH"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_BrokerErrorIsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Broker.Queue = "a b"

	err := cfg.Validate()
	if !errors.Is(err, eventprocessor.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

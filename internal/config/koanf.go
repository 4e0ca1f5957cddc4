// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marathon/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They are applied first, then
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Backend:         "nats",
			URL:             "nats://127.0.0.1:4222",
			Queue:           "reading_marathon",
			MaxRetries:      10,
			RetryDelay:      5 * time.Second,
			RetryMaxDelay:   5 * time.Second,
			RetryMultiplier: 1,
			PoisonEnabled:   true,
		},
		NATS: NATSConfig{
			Embedded:        true,
			Host:            "127.0.0.1",
			Port:            4222,
			StoreDir:        "./data/nats",
			MaxMemory:       256 << 20, // 256MB
			MaxStore:        1 << 30,   // 1GB
			DurableName:     "aggregator",
			DuplicateWindow: 2 * time.Minute,
			MaxAge:          7 * 24 * time.Hour,
			AckWait:         30 * time.Second,
			ConnectTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{
			ConsumerGroup: "aggregator",
			Consumer:      "aggregator-1",
			PingInterval:  2 * time.Second,
		},
		Marathon: MarathonConfig{
			ID:                 "verao_2025",
			RecentActivitySize: 10,
			DedupWindow:        10000,
			ViewerBuffer:       64,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3001,
			Timeout: 15 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Path:    "./data/snapshot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional config file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// BROKER_URL -> broker.url, MARATHON_ID -> marathon.id, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are set from comma-separated strings in the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			// Unset, or already a list from YAML or the defaults.
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	// Broker
	"broker_backend":          "broker.backend",
	"broker_url":              "broker.url",
	"queue":                   "broker.queue",
	"broker_max_retries":      "broker.max_retries",
	"broker_retry_delay":      "broker.retry_delay",
	"broker_retry_max_delay":  "broker.retry_max_delay",
	"broker_retry_multiplier": "broker.retry_multiplier",
	"broker_poison_enabled":   "broker.poison_enabled",

	// NATS
	"nats_embedded":         "nats.embedded",
	"nats_host":             "nats.host",
	"nats_port":             "nats.port",
	"nats_store_dir":        "nats.store_dir",
	"nats_max_memory":       "nats.max_memory",
	"nats_max_store":        "nats.max_store",
	"nats_durable_name":     "nats.durable_name",
	"nats_duplicate_window": "nats.duplicate_window",
	"nats_max_age":          "nats.max_age",
	"nats_ack_wait":         "nats.ack_wait",
	"nats_connect_timeout":  "nats.connect_timeout",

	// Redis
	"redis_consumer_group": "redis.consumer_group",
	"redis_consumer":       "redis.consumer",

	// Marathon
	"marathon_id":          "marathon.id",
	"recent_activity_size": "marathon.recent_activity_size",
	"dedup_window":         "marathon.dedup_window",
	"viewer_buffer":        "marathon.viewer_buffer",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Snapshot
	"snapshot_enabled":     "snapshot.enabled",
	"snapshot_path":        "snapshot.path",
	"snapshot_sync_writes": "snapshot.sync_writes",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

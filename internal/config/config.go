// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: defaultConfig()
//  2. Config File: optional YAML (CONFIG_PATH, config.yaml or config.yml)
//  3. Environment Variables: the names listed in envTransformFunc
//
// Config is immutable after Load and safe for concurrent reads.
type Config struct {
	Broker   BrokerConfig   `koanf:"broker"`
	NATS     NATSConfig     `koanf:"nats"`
	Redis    RedisConfig    `koanf:"redis"`
	Marathon MarathonConfig `koanf:"marathon"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// BrokerConfig selects the queue backend and how hard to try reaching it.
type BrokerConfig struct {
	Backend string `koanf:"backend"` // nats, redis or memory
	URL     string `koanf:"url"`
	Queue   string `koanf:"queue"`

	// Connection retry policy, shared by producer and aggregator.
	MaxRetries      int           `koanf:"max_retries"`
	RetryDelay      time.Duration `koanf:"retry_delay"`
	RetryMaxDelay   time.Duration `koanf:"retry_max_delay"`
	RetryMultiplier float64       `koanf:"retry_multiplier"`

	// PoisonEnabled moves unprocessable messages to <queue>.poison instead
	// of dropping them.
	PoisonEnabled bool `koanf:"poison_enabled"`
}

// NATSConfig covers the JetStream stream and the optional embedded server.
type NATSConfig struct {
	Embedded  bool   `koanf:"embedded"`
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory"`
	MaxStore  int64  `koanf:"max_store"`

	DurableName     string        `koanf:"durable_name"`
	DuplicateWindow time.Duration `koanf:"duplicate_window"`
	MaxAge          time.Duration `koanf:"max_age"`
	AckWait         time.Duration `koanf:"ack_wait"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// ClientURL returns the URL of the embedded server.
func (n NATSConfig) ClientURL() string {
	return "nats://" + net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// RedisConfig holds redis streams settings.
type RedisConfig struct {
	ConsumerGroup string        `koanf:"consumer_group"`
	Consumer      string        `koanf:"consumer"`
	PingInterval  time.Duration `koanf:"ping_interval"`
}

// MarathonConfig identifies the marathon and sizes its in-memory windows.
type MarathonConfig struct {
	ID                 string `koanf:"id"`
	RecentActivitySize int    `koanf:"recent_activity_size"`

	// DedupWindow is how many applied event ids are remembered.
	DedupWindow int `koanf:"dedup_window"`

	// ViewerBuffer is the per-viewer queue length before a slow viewer is
	// dropped.
	ViewerBuffer int `koanf:"viewer_buffer"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SnapshotConfig controls the optional on-disk state snapshot.
type SnapshotConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// String summarises the settings worth logging at startup.
func (c *Config) String() string {
	return fmt.Sprintf("backend=%s queue=%s marathon=%s http=%s snapshot=%t",
		c.Broker.Backend, c.Broker.Queue, c.Marathon.ID, c.Server.Addr(), c.Snapshot.Enabled)
}

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that the configuration is complete and within bounds.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateBroker,
		c.validateNATS,
		c.validateMarathon,
		c.validateServer,
		c.validateSecurity,
		c.validateSnapshot,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateBroker() error {
	switch c.Broker.Backend {
	case "nats":
		// An embedded server supplies its own URL.
		if !c.NATS.Embedded {
			if err := validateBrokerURL(c.Broker.URL, "nats", "tls", "ws", "wss"); err != nil {
				return fmt.Errorf("BROKER_URL is invalid: %w", err)
			}
		}
	case "redis":
		if err := validateBrokerURL(c.Broker.URL, "redis", "rediss"); err != nil {
			return fmt.Errorf("BROKER_URL is invalid: %w", err)
		}
	case "memory":
	default:
		return fmt.Errorf("BROKER_BACKEND must be one of: nats, redis, memory")
	}

	if strings.TrimSpace(c.Broker.Queue) == "" {
		return fmt.Errorf("QUEUE is required")
	}
	if c.Broker.MaxRetries < 1 {
		return fmt.Errorf("BROKER_MAX_RETRIES must be at least 1")
	}
	if c.Broker.RetryDelay <= 0 {
		return fmt.Errorf("BROKER_RETRY_DELAY must be positive")
	}
	if c.Broker.RetryMaxDelay < c.Broker.RetryDelay {
		return fmt.Errorf("BROKER_RETRY_MAX_DELAY must not be less than BROKER_RETRY_DELAY")
	}
	if c.Broker.RetryMultiplier < 1 {
		return fmt.Errorf("BROKER_RETRY_MULTIPLIER must be at least 1")
	}

	// Deeper checks shared with the event processor.
	return c.EventBroker().Validate()
}

// validateBrokerURL checks scheme and host.
func validateBrokerURL(rawURL string, schemes ...string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	valid := false
	for _, s := range schemes {
		if parsedURL.Scheme == s {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("scheme must be one of %s, got: %q", strings.Join(schemes, ", "), parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory         = 16 << 20 // 16MB
	natsMinStore          = 64 << 20 // 64MB
	natsMinDuplicateWin   = time.Second
	natsMinAckWait        = time.Second
	natsMinConnectTimeout = 100 * time.Millisecond
)

func (c *Config) validateNATS() error {
	if c.Broker.Backend != "nats" {
		return nil
	}

	n := c.NATS
	if n.Embedded {
		if n.Port < 1 || n.Port > 65535 {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535")
		}
		if strings.TrimSpace(n.StoreDir) == "" {
			return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
		}
		if n.MaxMemory < natsMinMemory {
			return fmt.Errorf("NATS_MAX_MEMORY must be at least 16MB")
		}
		if n.MaxStore < natsMinStore {
			return fmt.Errorf("NATS_MAX_STORE must be at least 64MB")
		}
	}

	if strings.TrimSpace(n.DurableName) == "" {
		return fmt.Errorf("NATS_DURABLE_NAME is required")
	}
	if n.DuplicateWindow < natsMinDuplicateWin {
		return fmt.Errorf("NATS_DUPLICATE_WINDOW must be at least 1s")
	}
	if n.MaxAge < n.DuplicateWindow {
		return fmt.Errorf("NATS_MAX_AGE must not be shorter than NATS_DUPLICATE_WINDOW")
	}
	if n.AckWait < natsMinAckWait {
		return fmt.Errorf("NATS_ACK_WAIT must be at least 1s")
	}
	if n.ConnectTimeout < natsMinConnectTimeout {
		return fmt.Errorf("NATS_CONNECT_TIMEOUT must be at least 100ms")
	}
	return nil
}

const (
	maxRecentActivity = 1000
	maxViewerBuffer   = 4096
)

func (c *Config) validateMarathon() error {
	m := c.Marathon
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("MARATHON_ID is required")
	}
	if m.RecentActivitySize < 1 || m.RecentActivitySize > maxRecentActivity {
		return fmt.Errorf("RECENT_ACTIVITY_SIZE must be between 1 and %d", maxRecentActivity)
	}
	if m.DedupWindow < 1 {
		return fmt.Errorf("DEDUP_WINDOW must be at least 1")
	}
	if m.ViewerBuffer < 1 || m.ViewerBuffer > maxViewerBuffer {
		return fmt.Errorf("VIEWER_BUFFER must be between 1 and %d", maxViewerBuffer)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// Rate limit bounds
const (
	minRateLimitWindow = time.Second
	maxRateLimitWindow = time.Hour
)

func (c *Config) validateSecurity() error {
	if len(c.Security.CORSOrigins) == 0 {
		return fmt.Errorf("CORS_ORIGINS must list at least one origin (use * to allow all)")
	}

	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between 1s and 1h")
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.Enabled && strings.TrimSpace(c.Snapshot.Path) == "" {
		return fmt.Errorf("SNAPSHOT_PATH is required when SNAPSHOT_ENABLED is true")
	}
	return nil
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

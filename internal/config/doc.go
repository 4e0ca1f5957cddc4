// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package config loads and validates Marathon's configuration.

Settings are layered with Koanf v2: built-in defaults, then an optional YAML
file (CONFIG_PATH, ./config.yaml, ./config.yml or /etc/marathon/config.yaml),
then environment variables. Later layers win.

# Environment Variables

Broker:
  - BROKER_BACKEND: nats, redis or memory (default: nats)
  - BROKER_URL: broker address, ignored by an embedded NATS server
  - QUEUE: queue name (default: reading_marathon)
  - BROKER_MAX_RETRIES: connection attempts before giving up (default: 10)
  - BROKER_RETRY_DELAY: wait between attempts (default: 5s)
  - BROKER_RETRY_MAX_DELAY, BROKER_RETRY_MULTIPLIER: backoff growth
  - BROKER_POISON_ENABLED: move unprocessable messages to <queue>.poison

NATS:
  - NATS_EMBEDDED: run a JetStream server in-process (default: true)
  - NATS_HOST, NATS_PORT, NATS_STORE_DIR, NATS_MAX_MEMORY, NATS_MAX_STORE
  - NATS_DURABLE_NAME, NATS_DUPLICATE_WINDOW, NATS_MAX_AGE, NATS_ACK_WAIT
  - NATS_CONNECT_TIMEOUT

Redis:
  - REDIS_CONSUMER_GROUP, REDIS_CONSUMER

Marathon:
  - MARATHON_ID: marathon identifier (default: verao_2025)
  - RECENT_ACTIVITY_SIZE: readings kept in the activity feed (default: 10)
  - DEDUP_WINDOW: applied event ids remembered (default: 10000)
  - VIEWER_BUFFER: queued updates per viewer (default: 64)

HTTP:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:3001), HTTP_TIMEOUT
  - CORS_ORIGINS: comma-separated, * allows any origin
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Snapshot:
  - SNAPSHOT_ENABLED, SNAPSHOT_PATH, SNAPSHOT_SYNC_WRITES

Logging:
  - LOG_LEVEL: trace, debug, info, warn or error
  - LOG_FORMAT: json or console
  - LOG_CALLER: include file:line

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	broker := cfg.EventBroker()

Load validates before returning, so a returned Config is always usable.
*/
package config

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package main is the entry point for the Marathon server.

Marathon is a real-time dashboard for a reading marathon. Readers submit the
pages they read, a single aggregator folds the readings into the marathon
state, and every change is pushed to viewers over websockets.

# Application Architecture

	RootSupervisor ("marathon")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── nats-server (embedded JetStream, NATS_EMBEDDED=true)
	│   ├── websocket-hub
	│   ├── aggregator (subscriber connection, single consumer)
	│   └── producer (publisher connection)
	└── APISupervisor ("api-layer")
	    └── http-server

Startup order:

 1. Configuration (Koanf v2: defaults, YAML file, environment)
 2. Logging and build info metric
 3. Embedded NATS server, when enabled
 4. Broker backend and one connection each for producer and aggregator
 5. Snapshot store and state restore, when enabled
 6. Websocket hub, HTTP handlers and chi router
 7. Supervisor tree until SIGINT/SIGTERM or a fatal error

# Exit Status

The process exits 0 after a signal-driven shutdown and 1 when the
configuration is invalid or a broker connection gives up.

# Build

	go build -ldflags "-X main.version=1.2.0" ./cmd/server
*/
package main

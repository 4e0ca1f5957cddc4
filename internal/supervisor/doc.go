// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package supervisor runs Marathon's long-lived components under a suture v4
supervisor tree.

# Overview

	RootSupervisor ("marathon")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── BrokerService ("nats-server", embedded NATS only)
	│   ├── RunnerService ("websocket-hub")
	│   ├── RunnerService ("aggregator")
	│   └── RunnerService ("producer")
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with suture's backoff. Supervisor events are
logged through sutureslog on top of the zerolog-backed slog handler from
internal/logging.

# Fatal Errors

Some failures must stop the process: a broker connection whose retries are
exhausted, or a queue that exists with different parameters. RunnerService
passes those to ReportFatal, which cancels the tree. Serve then returns the
fatal error and main exits with status 1.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewComponentSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewRunnerService("aggregator", agg.Run, tree.ReportFatal))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    os.Exit(1)
	}
*/
package supervisor

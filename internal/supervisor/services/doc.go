// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package services adapts Marathon components to suture v4 services.

Each wrapper translates a component lifecycle into suture's Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

HTTPServerService wraps *http.Server. ListenAndServe runs in a goroutine and
context cancellation triggers Shutdown with a bounded timeout.

RunnerService wraps any blocking Run(ctx) error: the producer and aggregator
connections and the websocket hub. Errors that eventprocessor.IsFatal
recognises are reported and joined with suture.ErrTerminateSupervisorTree so
the whole tree stops instead of restarting the component.

BrokerService owns an already started embedded NATS server and shuts it down
when the tree stops.

# Example

	tree.AddMessagingService(services.NewRunnerService("aggregator", agg.Run, tree.ReportFatal))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
*/
package services

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package middleware provides the HTTP middleware shared by every Marathon
route.

  - RequestID: reuses an inbound X-Request-ID or generates one, echoes it on
    the response and stores it, with a fresh correlation id, in the logging
    context.
  - PrometheusMetrics: records request count, duration and in-flight
    requests, labelled with the chi route pattern so that
    /api/v1/participants/{participantID} is one series, not one per id.

Both are func(http.Handler) http.Handler and plug into chi's r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

The metrics response writer passes http.Hijacker and http.Flusher through
to the underlying writer, so websocket upgrades work behind it.
*/
package middleware

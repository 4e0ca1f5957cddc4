// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package api provides the HTTP surface of Marathon.

Routes:

	POST /api/v1/readings                      submit a reading (202 Accepted)
	GET  /api/v1/marathon                      current marathon state
	GET  /api/v1/leaderboard?limit=n           participants ranked by pages
	GET  /api/v1/participants/{participantID}  one participant's total and recent entries
	GET  /api/v1/ws, /ws                       live updates over websocket
	GET  /api/v1/health/live, /ready, /        probes and component details
	GET  /metrics                              Prometheus exposition
	POST /leitura                              legacy submission route
	GET  /dados-maratona                       legacy state route (bare JSON)

JSON responses on /api/v1 share one envelope:

	{
	  "success": true,
	  "data": {...},
	  "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 1}
	}

and errors carry {"code", "message", "details", "request_id"} under "error".
Error codes are the ErrCode constants in response.go.

A submission is only answered 202 once the broker confirmed the publish. The
state shown on the read routes lags behind by however long the aggregator
takes to consume it.
*/
package api

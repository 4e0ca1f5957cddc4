// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package metrics exposes Prometheus instrumentation for Marathon.

All collectors are registered on the default registry through promauto and
served at /metrics.

# Available Metrics

Submissions:
  - marathon_submissions_total{result}
  - marathon_publish_duration_seconds

Aggregation:
  - marathon_events_applied_total
  - marathon_poison_messages_total{reason}
  - marathon_duplicates_skipped_total
  - marathon_processing_duration_seconds
  - marathon_total_pages{marathon_id}, marathon_state_sequence{marathon_id}
  - marathon_participants{marathon_id}
  - marathon_snapshot_errors_total

Broker:
  - broker_connection_state{connection}
  - broker_connection_attempts_total{connection,result}
  - circuit_breaker_state{name}, circuit_breaker_state_transitions_total

Live view and HTTP:
  - websocket_connections, websocket_messages_sent_total
  - websocket_slow_clients_dropped_total
  - api_requests_total, api_request_duration_seconds, api_active_requests
*/
package metrics

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission Metrics
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marathon_submissions_total",
			Help: "Total number of reading submissions by result",
		},
		[]string{"result"}, // "accepted", "invalid", "unavailable"
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marathon_publish_duration_seconds",
			Help:    "Time to publish a reading and receive the broker acknowledgement",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// Aggregator Metrics
	EventsApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marathon_events_applied_total",
			Help: "Total number of readings applied to the marathon state",
		},
	)

	PoisonMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marathon_poison_messages_total",
			Help: "Total number of queue messages discarded as unprocessable",
		},
		[]string{"reason"},
	)

	DuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marathon_duplicates_skipped_total",
			Help: "Total number of redelivered readings skipped by event id",
		},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marathon_processing_duration_seconds",
			Help:    "Time from delivery to acknowledgement of one reading",
			Buckets: prometheus.DefBuckets,
		},
	)

	TotalPages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marathon_total_pages",
			Help: "Total pages read in the marathon",
		},
		[]string{"marathon_id"},
	)

	StateSequence = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marathon_state_sequence",
			Help: "Number of readings applied since the state was created",
		},
		[]string{"marathon_id"},
	)

	Participants = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marathon_participants",
			Help: "Number of distinct participants with at least one reading",
		},
		[]string{"marathon_id"},
	)

	SnapshotErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marathon_snapshot_errors_total",
			Help: "Total number of failed snapshot writes",
		},
	)

	// Broker Connection Metrics
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_connection_state",
			Help: "Broker connection state (0=disconnected, 1=connecting, 2=connected, 3=closing, 4=closed)",
		},
		[]string{"connection"},
	)

	ConnectionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_connection_attempts_total",
			Help: "Total number of broker connection attempts",
		},
		[]string{"connection", "result"}, // result: "success", "failure"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSSlowClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_dropped_total",
			Help: "Total number of clients disconnected because their send buffer was full",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordSubmission counts one submission outcome.
func RecordSubmission(result string) {
	SubmissionsTotal.WithLabelValues(result).Inc()
}

// RecordPublish observes how long one publish took.
func RecordPublish(duration time.Duration) {
	PublishDuration.Observe(duration.Seconds())
}

// RecordApplied updates the aggregator metrics after a reading was applied.
func RecordApplied(marathonID string, totalPages int64, sequence uint64, participants int) {
	EventsApplied.Inc()
	UpdateStateGauges(marathonID, totalPages, sequence, participants)
}

// UpdateStateGauges sets the marathon gauges, e.g. after a snapshot restore.
func UpdateStateGauges(marathonID string, totalPages int64, sequence uint64, participants int) {
	TotalPages.WithLabelValues(marathonID).Set(float64(totalPages))
	StateSequence.WithLabelValues(marathonID).Set(float64(sequence))
	Participants.WithLabelValues(marathonID).Set(float64(participants))
}

// RecordPoison counts one discarded message.
func RecordPoison(reason string) {
	PoisonMessages.WithLabelValues(reason).Inc()
}

// RecordDuplicate counts one skipped redelivery.
func RecordDuplicate() {
	DuplicatesSkipped.Inc()
}

// RecordProcessing observes the handling time of one delivery.
func RecordProcessing(duration time.Duration) {
	ProcessingDuration.Observe(duration.Seconds())
}

// RecordConnectionState sets the state gauge of a named broker connection.
func RecordConnectionState(connection string, state int) {
	ConnectionState.WithLabelValues(connection).Set(float64(state))
}

// RecordConnectionAttempt counts one dial attempt.
func RecordConnectionAttempt(connection string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ConnectionAttempts.WithLabelValues(connection, result).Inc()
}

// RecordCircuitBreakerTransition tracks breaker state changes.
// States are gobreaker names: "closed", "half-open", "open".
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()

	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	CircuitBreakerState.WithLabelValues(name).Set(value)
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// SetAppInfo publishes the build version.
func SetAppInfo(version string) {
	AppInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

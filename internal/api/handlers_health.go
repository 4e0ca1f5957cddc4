// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/marathon/internal/eventprocessor"
)

// HealthReport is the body of /health.
type HealthReport struct {
	eventprocessor.OverallHealth
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	LiveViewers   int     `json:"live_viewers"`
}

// HealthLive answers 200 while the process is serving HTTP, whatever the
// state of the broker.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 200 only while every readiness component is healthy,
// which means both broker connections are established.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	overall := eventprocessor.CheckAll(r.Context(), h.readiness...)
	if !overall.Healthy {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Service is not ready", overall)
		return
	}
	rw.Success(map[string]interface{}{
		"ready":      true,
		"components": overall.Components,
	})
}

// Health reports every component. It always answers 200; the status field
// says whether the service is healthy, degraded or unhealthy.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{
		OverallHealth: eventprocessor.CheckAll(r.Context(), h.readiness...),
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		report.LiveViewers = h.wsHub.GetClientCount()
	}
	NewResponseWriter(w, r).Success(report)
}

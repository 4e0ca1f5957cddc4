// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"net/http"
	"testing"

	"github.com/tomtom215/marathon/internal/eventprocessor"
)

func TestHealthLive_IgnoresDependencies(t *testing.T) {
	h := newTestRouter(HandlerConfig{
		Submitter: &fakeSubmitter{},
		State:     sampleState(),
		Readiness: []eventprocessor.HealthCheckable{fakeCheck{name: "producer"}},
	}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checks     []eventprocessor.HealthCheckable
		wantStatus int
	}{
		{"both connected", []eventprocessor.HealthCheckable{
			fakeCheck{name: "producer", healthy: true},
			fakeCheck{name: "aggregator", healthy: true},
		}, http.StatusOK},
		{"aggregator reconnecting", []eventprocessor.HealthCheckable{
			fakeCheck{name: "producer", healthy: true},
			fakeCheck{name: "aggregator"},
		}, http.StatusServiceUnavailable},
		{"both down", []eventprocessor.HealthCheckable{
			fakeCheck{name: "producer"},
			fakeCheck{name: "aggregator"},
		}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(HandlerConfig{Submitter: &fakeSubmitter{}, State: sampleState(), Readiness: tt.checks}, nil)

			rec := do(t, h, http.MethodGet, "/api/v1/health/ready", "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			env := decodeEnvelope(t, rec)
			if env.Success != (tt.wantStatus == http.StatusOK) {
				t.Errorf("unexpected success flag in %s", rec.Body.String())
			}
		})
	}
}

func TestHealthReady_RealConnections(t *testing.T) {
	backend := eventprocessor.NewMemoryBackend(nil)
	defer func() { _ = backend.Close() }()
	conn := eventprocessor.NewConnection("producer", backend, eventprocessor.RolePublisher, eventprocessor.DefaultRetryPolicy())

	h := newTestRouter(HandlerConfig{
		Submitter: &fakeSubmitter{},
		State:     sampleState(),
		Readiness: []eventprocessor.HealthCheckable{conn},
	}, nil)

	if rec := do(t, h, http.MethodGet, "/api/v1/health/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("a connection that never ran should not be ready, got %d", rec.Code)
	}
}

func TestHealth_Details(t *testing.T) {
	h := newTestRouter(HandlerConfig{
		Submitter: &fakeSubmitter{},
		State:     sampleState(),
		Readiness: []eventprocessor.HealthCheckable{
			fakeCheck{name: "producer", healthy: true},
			fakeCheck{name: "aggregator"},
		},
		Version: "1.2.3",
	}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health details always answer 200, got %d", rec.Code)
	}

	var report HealthReport
	decodeData(t, decodeEnvelope(t, rec), &report)
	if report.Status != eventprocessor.HealthStatusDegraded || report.Healthy {
		t.Errorf("expected degraded, got %+v", report.OverallHealth)
	}
	if report.Version != "1.2.3" || len(report.Components) != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if !report.Components["producer"].Healthy || report.Components["aggregator"].Healthy {
		t.Errorf("unexpected components %+v", report.Components)
	}
}

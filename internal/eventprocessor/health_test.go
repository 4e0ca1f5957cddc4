// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"testing"
)

type staticHealth ComponentHealth

func (s staticHealth) HealthCheck(context.Context) ComponentHealth {
	return ComponentHealth(s)
}

func TestCheckAll(t *testing.T) {
	up := staticHealth{Name: "producer", Healthy: true}
	down := staticHealth{Name: "aggregator", Healthy: false}

	tests := []struct {
		name       string
		components []HealthCheckable
		want       HealthStatusType
		healthy    bool
	}{
		{"all healthy", []HealthCheckable{up}, HealthStatusHealthy, true},
		{"some healthy", []HealthCheckable{up, down}, HealthStatusDegraded, false},
		{"none healthy", []HealthCheckable{down}, HealthStatusUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckAll(context.Background(), tt.components...)
			if got.Status != tt.want || got.Healthy != tt.healthy {
				t.Errorf("got %s/%v, want %s/%v", got.Status, got.Healthy, tt.want, tt.healthy)
			}
			if len(got.Components) != len(tt.components) {
				t.Errorf("expected %d components, got %d", len(tt.components), len(got.Components))
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(ErrQueueUnavailable) || IsFatal(ErrInvalidInput) {
		t.Error("transient errors must not be fatal")
	}
	for _, err := range []error{ErrConnectionExhausted, ErrQueueMismatch, ErrInvalidConfig} {
		if !IsFatal(err) {
			t.Errorf("%v should be fatal", err)
		}
	}
}

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"context"
	"time"
)

// HealthStatusType represents the overall health status.
type HealthStatusType string

const (
	HealthStatusHealthy   HealthStatusType = "healthy"
	HealthStatusDegraded  HealthStatusType = "degraded"
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Healthy   bool                   `json:"healthy"`
	Message   string                 `json:"message,omitempty"`
	LastCheck time.Time              `json:"last_check"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheckable is implemented by components that support health checking.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// OverallHealth is the aggregated status of several components.
type OverallHealth struct {
	Healthy    bool                       `json:"healthy"`
	Status     HealthStatusType           `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthCheck reports the connection healthy only while Connected.
func (c *Connection) HealthCheck(_ context.Context) ComponentHealth {
	state := c.State()
	return ComponentHealth{
		Name:      c.name,
		Healthy:   state == StateConnected,
		Message:   state.String(),
		LastCheck: time.Now(),
		Details: map[string]interface{}{
			"backend": c.backend.Name(),
		},
	}
}

// CheckAll runs every check. The result is healthy when all components are,
// degraded when only some are, and unhealthy when none is.
func CheckAll(ctx context.Context, components ...HealthCheckable) OverallHealth {
	result := OverallHealth{
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(components)),
	}

	healthy := 0
	for _, component := range components {
		h := component.HealthCheck(ctx)
		result.Components[h.Name] = h
		if h.Healthy {
			healthy++
		}
	}

	switch {
	case healthy == len(components):
		result.Healthy = true
		result.Status = HealthStatusHealthy
	case healthy > 0:
		result.Status = HealthStatusDegraded
	default:
		result.Status = HealthStatusUnhealthy
	}
	return result
}

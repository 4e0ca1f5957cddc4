// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/models"
	ws "github.com/tomtom215/marathon/internal/websocket"
)

// maxBodyBytes bounds submission bodies. A valid reading is well under 1KB.
const maxBodyBytes = 16 * 1024

// ReadingSubmitter accepts readings for the queue.
// *eventprocessor.Producer implements it.
type ReadingSubmitter interface {
	Submit(ctx context.Context, in *models.ReadingInput) (*models.ReadingEvent, error)
}

// StateReader gives the read routes a consistent copy of the state.
// *aggregator.Aggregator implements it.
type StateReader interface {
	Snapshot() models.MarathonState
}

// HandlerConfig holds the dependencies of a Handler.
type HandlerConfig struct {
	Submitter ReadingSubmitter
	State     StateReader
	Hub       *ws.Hub

	// Readiness must all be healthy for /health/ready to return 200.
	Readiness []eventprocessor.HealthCheckable

	// CORSOrigins also decides which websocket origins are accepted.
	CORSOrigins []string

	Version string
}

// Handler serves every Marathon route.
type Handler struct {
	submitter   ReadingSubmitter
	state       StateReader
	wsHub       *ws.Hub
	readiness   []eventprocessor.HealthCheckable
	corsOrigins []string
	version     string
	startTime   time.Time
	upgrader    websocket.Upgrader
}

// NewHandler creates a handler from cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		submitter:   cfg.Submitter,
		state:       cfg.State,
		wsHub:       cfg.Hub,
		readiness:   cfg.Readiness,
		corsOrigins: cfg.CORSOrigins,
		version:     cfg.Version,
		startTime:   time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// WebSocket attaches the caller to the live-update hub. The first message
// is the current state, every later one an update.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("websocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("Live updates unavailable")
		return
	}
	ws.ServeWS(h.wsHub, &h.upgrader, w, r)
}

// checkWebSocketOrigin accepts origins allowed by CORS. A missing Origin
// header is only accepted when every origin is.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	for _, allowed := range h.corsOrigins {
		if allowed == "*" {
			return true
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters and bounds the length of a
// client-supplied value before it is logged.
func sanitizeLogValue(s string) string {
	const maxLen = 256
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/marathon/internal/logging"
)

// registerTimeout bounds the wait for the hub loop to accept a viewer.
const registerTimeout = 5 * time.Second

// ServeWS upgrades the request and attaches the connection to hub. The
// viewer's first message is always initialData.
func ServeWS(hub *Hub, upgrader *websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), registerTimeout)
	defer cancel()

	client := NewClient(hub, conn)
	if err := hub.Register(ctx, client); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket hub did not accept client")
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "hub unavailable"))
		_ = conn.Close()
		return
	}
	client.Start()
}

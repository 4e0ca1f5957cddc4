// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/metrics"
	"github.com/tomtom215/marathon/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline means the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeInitialData = "initialData"
	MessageTypeUpdate      = "update"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// DefaultSendBuffer is the per-client queue length used when none is set.
const DefaultSendBuffer = 64

// Message represents a WebSocket message. For initialData and update, Data
// is the full MarathonState and Sequence is its sequence; update also
// carries the Reading that produced it.
type Message struct {
	Type     string               `json:"type"`
	Sequence uint64               `json:"sequence,omitempty"`
	Reading  *models.ReadingEvent `json:"reading,omitempty"`
	Data     interface{}          `json:"data"`
}

// SnapshotSource supplies the state a joining viewer starts from.
type SnapshotSource interface {
	Snapshot() models.MarathonState
}

// Hub owns the set of live viewers. A single goroutine (RunWithContext)
// registers, unregisters and broadcasts, so a join always sees either the
// state before an update together with that update, or the state after it
// without the update.
type Hub struct {
	source     SnapshotSource
	sendBuffer int

	clients    map[*Client]bool
	broadcast  chan *models.StateUpdate
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	stopped chan struct{}
}

// NewHub creates a hub that greets new viewers with source's snapshot.
// sendBuffer <= 0 selects DefaultSendBuffer.
func NewHub(source SnapshotSource, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		source:     source,
		sendBuffer: sendBuffer,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *models.StateUpdate),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// SetSource replaces the snapshot source. It must be called before
// RunWithContext.
func (h *Hub) SetSource(source SnapshotSource) {
	h.source = source
}

// Register hands c to the hub loop, which sends it the initial snapshot.
// It blocks until the loop accepts c or ctx ends.
func (h *Hub) Register(ctx context.Context, c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unregister removes c. It is a no-op for clients the hub already dropped
// and returns immediately when the hub is not running.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stoppedCh():
	}
}

// Broadcast hands update to the hub loop. Unlike sends to individual
// clients it never drops: it blocks until the loop accepts the update or ctx
// ends, in which case ctx.Err() is returned.
func (h *Hub) Broadcast(ctx context.Context, update *models.StateUpdate) error {
	select {
	case h.broadcast <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) stoppedCh() <-chan struct{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stopped
}

// RunWithContext runs the hub loop until ctx ends, then closes every client
// and returns ctx.Err(). It can be restarted by a supervisor.
//
// DETERMINISM: shutdown is checked first, then lifecycle events, then
// broadcasts, so client state is settled before a message goes out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	select {
	case <-h.stopped:
		h.stopped = make(chan struct{})
	default:
	}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		close(h.stopped)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.register:
			h.join(client)
			continue
		case client := <-h.unregister:
			h.leave(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.register:
			h.join(client)
		case client := <-h.unregister:
			h.leave(client)
		case update := <-h.broadcast:
			h.broadcastToClients(update)
		}
	}
}

// join registers client and queues its initial snapshot in one step of the
// loop, remembering the snapshot's sequence so that updates it already
// contains are not sent again.
func (h *Hub) join(client *Client) {
	var snapshot models.MarathonState
	if h.source != nil {
		snapshot = h.source.Snapshot()
	}
	client.joinedSeq = snapshot.Sequence
	client.send <- Message{Type: MessageTypeInitialData, Sequence: snapshot.Sequence, Data: snapshot}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	metrics.WSMessagesSent.Inc()
	logging.Info().Uint64("client_id", client.id).Uint64("sequence", snapshot.Sequence).Int("total_clients", count).Msg("websocket client connected")
}

func (h *Hub) leave(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", count).Msg("websocket client disconnected")
}

// broadcastToClients queues update for every client whose snapshot predates
// it. A client whose queue is full is dropped; it will reconnect and get a
// fresh snapshot.
//
// DETERMINISM: clients are visited in id order.
func (h *Hub) broadcastToClients(update *models.StateUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	reading := update.Reading
	msg := Message{Type: MessageTypeUpdate, Sequence: update.Sequence, Reading: &reading, Data: update.State}
	var toRemove []*Client
	for _, client := range clients {
		if update.Sequence <= client.joinedSeq {
			continue
		}
		select {
		case client.send <- msg:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSSlowClientsDropped.Inc()
		logging.Warn().Uint64("client_id", client.id).Uint64("sequence", update.Sequence).Msg("dropping slow websocket client")
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

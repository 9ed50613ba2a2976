// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/stream"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types exchanged with stream clients, in addition to the
// snapshot/delta/batch frames defined by the stream package.
const (
	MessageTypeResync = "resync"
	MessageTypePing   = "ping"
	MessageTypePong   = "pong"
	MessageTypeError  = "error"
)

// ErrHubStopped is returned when registering with a hub that has shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

// ControlMessage is a small client/server message outside the frame stream.
type ControlMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// StreamSource is satisfied by *stream.Sequencer.
type StreamSource interface {
	Subscribe() *stream.Subscription
	Resync(sub *stream.Subscription) error
}

// HubConfig controls per-client limits.
type HubConfig struct {
	// ResyncInterval is the minimum spacing of client resync requests.
	ResyncInterval time.Duration

	// ResyncBurst is the number of resyncs allowed back to back.
	ResyncBurst int
}

// DefaultHubConfig allows one resync per second with a burst of 3.
func DefaultHubConfig() HubConfig {
	return HubConfig{ResyncInterval: time.Second, ResyncBurst: 3}
}

// Hub tracks connected stream clients. Each client owns a stream
// subscription; the hub closes subscriptions when clients leave or when it
// shuts down.
type Hub struct {
	source     StreamSource
	cfg        HubConfig
	clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// stopped is closed when a run ends and replaced when the next one
	// starts, so a supervisor restart admits clients again.
	runMu   sync.Mutex
	stopped chan struct{}
}

// NewHub creates a Hub serving frames from source.
func NewHub(source StreamSource, cfg HubConfig) *Hub {
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = time.Second
	}
	if cfg.ResyncBurst <= 0 {
		cfg.ResyncBurst = 1
	}
	return &Hub{
		source:     source,
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

func (h *Hub) resyncLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(h.cfg.ResyncInterval), h.cfg.ResyncBurst)
}

// RunWithContext processes client lifecycle events until ctx is cancelled,
// then closes every client and returns ctx.Err(). It may be called again
// after it returns, but never concurrently.
//
// Shutdown is checked first, then lifecycle events, so a cancelled hub
// never admits another client.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.runMu.Lock()
	select {
	case <-h.stopped:
		h.stopped = make(chan struct{})
	default:
	}
	stopped := h.stopped
	h.runMu.Unlock()
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

// Join registers client with a running hub.
func (h *Hub) Join(client *Client) error {
	select {
	case h.Register <- client:
		return nil
	case <-h.stoppedCh():
		client.sub.Close()
		return ErrHubStopped
	}
}

// leave unregisters client, falling back to direct removal once the hub
// loop has exited.
func (h *Hub) leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.stoppedCh():
		h.removeClient(client)
	}
}

func (h *Hub) stoppedCh() <-chan struct{} {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	return h.stopped
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	metrics.TrackWSConnection(true)
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("stream client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	total := len(h.clients)
	h.mu.Unlock()

	client.sub.Close()
	if ok {
		metrics.TrackWSConnection(false)
		logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("stream client disconnected")
	}
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients closes every client's subscription in id order. Each
// client's write pump then sends a close frame and exits.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, client := range clients {
		client.sub.Close()
		metrics.TrackWSConnection(false)
	}
	return len(clients)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

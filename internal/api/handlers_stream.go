// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package api

import (
	"net/http"
	"net/url"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/websocket"
)

// Stream upgrades GET /api/v1/stream to a websocket carrying the change
// stream: a snapshot first, then deltas and batches.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Hub == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Stream service unavailable", nil)
		return
	}

	upgrader := gorillaws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.cfg.Hub, conn)
	if err := h.cfg.Hub.Join(client); err != nil {
		logging.Warn().Err(err).Msg("WebSocket client rejected")
		_ = conn.Close()
		return
	}
	client.Start()
}

// checkWebSocketOrigin accepts requests without an Origin header (non-browser
// clients such as lookout-tail), same-host origins, and configured origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err == nil && u.Host == r.Host {
		return true
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

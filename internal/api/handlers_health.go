// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/lookout/internal/models"
)

// HealthLive handles liveness probes. It succeeds whenever the process can
// serve HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady handles readiness probes: 200 when every dependency is
// healthy, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	status := models.ReadinessStatus{
		Ready:      true,
		Components: make([]models.ComponentStatus, 0, len(h.cfg.Dependencies)),
		Uptime:     time.Since(h.startTime).Seconds(),
	}
	if h.cfg.Targets != nil {
		status.Targets = h.cfg.Targets.Len()
	}
	if h.cfg.Stream != nil {
		status.StreamSeq = h.cfg.Stream.Seq()
		status.StreamSubscribers = h.cfg.Stream.Subscribers()
	}
	if h.cfg.Hub != nil {
		status.WebSocketClients = h.cfg.Hub.GetClientCount()
	}

	for _, dep := range h.cfg.Dependencies {
		healthy := dep.Healthy()
		cs := models.ComponentStatus{Name: dep.Name(), Healthy: healthy}
		if !healthy {
			cs.Detail = "unavailable"
			status.Ready = false
		}
		status.Components = append(status.Components, cs)
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	respondSuccess(w, code, status, models.Metadata{StreamSeq: status.StreamSeq})
}

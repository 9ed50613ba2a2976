// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package api

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/lookout/internal/tracking"
	"github.com/tomtom215/lookout/internal/websocket"
)

// TargetStore is the read side of the target registry.
type TargetStore interface {
	Get(key string) (tracking.TargetView, bool)
	Snapshot(withTrail bool) []tracking.TargetView
	Stats() tracking.Stats
	Len() int
}

// StreamStatus reports the change stream position.
type StreamStatus interface {
	Seq() uint64
	Subscribers() int
}

// Dependency is a component readiness depends on.
type Dependency interface {
	Name() string
	Healthy() bool
}

// DependencyFunc adapts a name and probe to Dependency.
type DependencyFunc struct {
	N     string
	Probe func() bool
}

// Name returns the dependency name.
func (d DependencyFunc) Name() string { return d.N }

// Healthy runs the probe.
func (d DependencyFunc) Healthy() bool { return d.Probe() }

// HandlerConfig wires the handler to the rest of the application.
type HandlerConfig struct {
	Targets TargetStore
	Stream  StreamStatus
	Hub     *websocket.Hub

	// Positions and PositionSubject enable POST /api/v1/positions.
	Positions       message.Publisher
	PositionSubject string

	Dependencies []Dependency

	// AllowedOrigins for websocket upgrades; "*" allows any origin.
	AllowedOrigins []string
}

// Handler serves the HTTP API.
type Handler struct {
	cfg       HandlerConfig
	startTime time.Time
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg, startTime: time.Now()}
}

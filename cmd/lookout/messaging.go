// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package main

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/lookout/internal/api"
	"github.com/tomtom215/lookout/internal/eventprocessor"
	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/tracking"
)

// Messaging holds the message bus and everything that publishes through
// it. With NATS disabled the bus is an in-process gochannel and status
// notifications are only logged.
type Messaging struct {
	cfg       eventprocessor.Config
	logger    watermill.LoggerAdapter
	server    *eventprocessor.EmbeddedServer
	bus       eventprocessor.Bus
	publisher *eventprocessor.Publisher
	sink      tracking.Sink

	closeOnce sync.Once
}

// InitMessaging starts the embedded NATS server when configured, connects
// the bus and builds the notification sink.
func InitMessaging(cfg eventprocessor.Config) (*Messaging, error) {
	m := &Messaging{cfg: cfg, logger: eventprocessor.NewLogger()}

	if !cfg.Enabled {
		logging.Info().Msg("NATS disabled (NATS_ENABLED=false), using in-process bus")
		m.bus = eventprocessor.NewInProcessBus(m.logger)
		m.sink = eventprocessor.LogSink{}
		return m, nil
	}

	url := cfg.URL
	if cfg.Embedded.Enabled {
		server, err := eventprocessor.NewEmbeddedServer(cfg.Embedded)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		m.server = server
		url = server.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", url).Msg("Using external NATS server")
	}

	bus, err := eventprocessor.NewNATSBus(cfg, url, m.logger)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.bus = bus

	breaker := eventprocessor.NewCircuitBreaker(cfg.CircuitBreaker)
	pub, err := eventprocessor.NewPublisher(bus.Publisher(), breaker)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.publisher = pub

	sink, err := eventprocessor.NewStatusSink(cfg, pub)
	if err != nil {
		m.Close()
		return nil, err
	}
	m.sink = sink

	logging.Info().
		Str("positions", cfg.PositionSubject).
		Str("status_prefix", cfg.StatusSubjectPrefix).
		Msg("NATS messaging initialized")
	return m, nil
}

// Sink is where the tracker delivers status notifications.
func (m *Messaging) Sink() tracking.Sink { return m.sink }

// Bus returns the position bus.
func (m *Messaging) Bus() eventprocessor.Bus { return m.bus }

// Logger returns the watermill logger shared by bus components.
func (m *Messaging) Logger() watermill.LoggerAdapter { return m.logger }

// Server returns the embedded NATS server, or nil.
func (m *Messaging) Server() *eventprocessor.EmbeddedServer { return m.server }

// Dependencies reports readiness probes for the messaging components.
func (m *Messaging) Dependencies(ingest *eventprocessor.Ingest) []api.Dependency {
	deps := []api.Dependency{
		api.DependencyFunc{N: "bus", Probe: m.bus.Connected},
		api.DependencyFunc{N: "ingest", Probe: ingest.IsRunning},
	}
	if m.server != nil {
		deps = append(deps, api.DependencyFunc{N: "nats-embedded", Probe: m.server.IsRunning})
	}
	if m.publisher != nil {
		deps = append(deps, api.DependencyFunc{N: "status-publisher", Probe: func() bool {
			return m.publisher.BreakerState() != "open"
		}})
	}
	return deps
}

// Close releases the publisher, the bus and the embedded server, in that
// order. It runs after the supervisor tree has stopped so the status
// publisher drains through a live server. Later calls do nothing.
func (m *Messaging) Close() {
	m.closeOnce.Do(m.close)
}

func (m *Messaging) close() {
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing status publisher")
		}
	}
	if m.bus != nil {
		if err := m.bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing message bus")
		}
	}
	if m.server != nil {
		m.server.Shutdown()
	}
}

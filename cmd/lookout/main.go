// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package main is the Lookout server.
//
// Lookout consumes position reports for radio targets (vessels, aids to
// navigation, base stations, aircraft), decides which targets are real and
// which have gone silent, and serves the live picture over HTTP and a
// websocket change stream.
//
// # Startup
//
//  1. Configuration: defaults, config.yaml, then environment (koanf)
//  2. Messaging: embedded or external NATS, or an in-process bus
//  3. Tracker: registry, processor, sweeper and notification publisher
//  4. Stream: sequencer and websocket hub
//  5. Ingest: watermill router feeding position reports to the processor
//  6. HTTP: chi router with the REST API, stream endpoint and /metrics
//
// Everything long-lived runs under a suture supervisor tree.
//
// # Signals
//
// SIGINT and SIGTERM cancel the tree. The HTTP server drains, the hub closes
// its clients, and the notification publisher flushes what it can within
// tracking.drain_timeout. The embedded NATS server is stopped last, after
// the tree has returned.
//
// # Example
//
//	export NATS_ENABLED=true
//	export NATS_EMBEDDED=true
//	export TRACKING_CLASS_A_LOST_AFTER=5m
//	./lookout
//
// The default port 3857 matches EPSG:3857 (Web Mercator), the projection
// most chart front ends render targets in.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/lookout/internal/api"
	"github.com/tomtom215/lookout/internal/config"
	"github.com/tomtom215/lookout/internal/eventprocessor"
	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/stream"
	"github.com/tomtom215/lookout/internal/supervisor"
	"github.com/tomtom215/lookout/internal/supervisor/services"
	"github.com/tomtom215/lookout/internal/timeutil"
	"github.com/tomtom215/lookout/internal/tracking"
	ws "github.com/tomtom215/lookout/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.Logging.LoggingCore())

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Lookout stopped with an error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential wiring of every component
func run(cfg *config.Config) error {
	logging.Info().Msg("Starting Lookout with supervisor tree")

	trackingCfg, err := cfg.Tracking.TrackingCore()
	if err != nil {
		return err
	}

	msg, err := InitMessaging(cfg.NATS)
	if err != nil {
		return err
	}
	// Closed after the tree returns: the embedded server outlives the
	// status publisher's drain.
	defer msg.Close()

	clock := timeutil.RealClock{}
	tracker, err := tracking.New(trackingCfg, msg.Sink(), clock)
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	sequencer := stream.NewSequencer(tracker.Registry, cfg.Stream.StreamCore(), clock)
	tracker.Registry.AddObserver(sequencer)
	hub := ws.NewHub(sequencer, cfg.Stream.HubConfig())

	ingest, err := eventprocessor.NewIngest(cfg.NATS, msg.Bus(), tracker.Processor, msg.Logger())
	if err != nil {
		return fmt.Errorf("create ingest: %w", err)
	}

	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); restrict it in production")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Targets:         tracker.Registry,
		Stream:          sequencer,
		Hub:             hub,
		Positions:       msg.Bus().Publisher(),
		PositionSubject: cfg.NATS.PositionSubject,
		Dependencies:    msg.Dependencies(ingest),
		AllowedOrigins:  cfg.Server.CORSOrigins,
	})
	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Server.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Server.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Server.RateLimitDisabled
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg))

	// WriteTimeout is left unset; websocket connections manage their own
	// write deadlines.
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddTrackingService(tracker.Publisher)
	tree.AddTrackingService(tracker.Sweeper)
	tree.AddTrackingService(sequencer)

	if natsServer := msg.Server(); natsServer != nil {
		tree.AddMessagingService(natsServer)
	}
	tree.AddMessagingService(ingest)
	tree.AddMessagingService(services.NewStreamHubService(hub))

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", server.Addr).
		Bool("nats", cfg.NATS.Enabled).
		Int("classes", len(trackingCfg.Thresholds)).
		Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	// The channel receives exactly one value and is never closed.
	var runErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
		runErr = <-errCh
	case runErr = <-errCh:
	}
	stop()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	stats := tracker.Registry.Stats()
	logging.Info().
		Int("targets", stats.Total).
		Uint64("stream_seq", sequencer.Seq()).
		Msg("Final registry state")

	if runErr != nil {
		return fmt.Errorf("supervisor tree: %w", runErr)
	}
	return nil
}

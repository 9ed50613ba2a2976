// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/lookout/internal/logging"
)

const (
	embeddedReadyTimeout   = 10 * time.Second
	embeddedHealthInterval = time.Second
)

var errEmbeddedStopped = errors.New("embedded NATS server stopped unexpectedly")

// EmbeddedServer runs a NATS server inside the process for single-node
// deployments. It is started by NewEmbeddedServer so that ClientURL is known
// before any client connects. Its owner stops it with Shutdown once every
// publisher has drained; ending the Serve context leaves it running.
type EmbeddedServer struct {
	cfg EmbeddedConfig

	mu        sync.Mutex
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server.
func NewEmbeddedServer(cfg EmbeddedConfig) (*EmbeddedServer, error) {
	s := &EmbeddedServer{cfg: cfg}
	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EmbeddedServer) start() error {
	opts := &server.Options{
		ServerName: "lookout",
		Host:       s.cfg.Host,
		Port:       s.cfg.Port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 1024 * 1024,
	}
	if s.cfg.StoreDir != "" {
		opts.JetStream = true
		opts.StoreDir = s.cfg.StoreDir
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return errors.New("NATS server not ready within timeout")
	}

	s.mu.Lock()
	s.server = ns
	s.clientURL = ns.ClientURL()
	s.mu.Unlock()

	logging.Info().
		Str("url", ns.ClientURL()).
		Bool("jetstream", opts.JetStream).
		Msg("Embedded NATS server started")
	return nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientURL
}

// IsRunning reports whether the server accepts connections.
func (s *EmbeddedServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil && s.server.Running()
}

// Serve watches the server until ctx is done. A server that stopped on its
// own is reported as a failure, and the supervisor restart starts it again.
// Serve does not stop the server: the status publisher drains through it
// during shutdown.
func (s *EmbeddedServer) Serve(ctx context.Context) error {
	if !s.IsRunning() {
		if err := s.start(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(embeddedHealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.IsRunning() {
				return errEmbeddedStopped
			}
		}
	}
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	s.mu.Lock()
	ns := s.server
	s.mu.Unlock()
	if ns == nil {
		return
	}
	if !ns.Running() {
		return
	}
	ns.Shutdown()
	ns.WaitForShutdown()
	logging.Info().Msg("Embedded NATS server stopped")
}

func (s *EmbeddedServer) String() string { return "nats-embedded" }

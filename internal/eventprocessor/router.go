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
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/lookout/internal/logging"
)

const positionHandlerName = "position-ingest"

// Ingest consumes position reports from the bus and feeds them to the
// tracker through a watermill router. Middleware, outer to inner:
// Throttle (optional), PoisonQueue (optional), Retry, Recoverer.
//
// The position handler acks undecodable reports and the tracker is in
// memory, so a handler error only comes from a panic caught by Recoverer.
// Retry and PoisonQueue therefore see panicking reports only: each is retried
// and then parked on the poison subject instead of being redelivered forever.
type Ingest struct {
	cfg    Config
	bus    Bus
	proc   EventHandler
	logger watermill.LoggerAdapter

	running     atomic.Bool
	started     chan struct{}
	startedOnce sync.Once
}

// NewIngest builds the ingest service. The router itself is created on each
// Serve call so the service survives supervisor restarts.
func NewIngest(cfg Config, bus Bus, proc EventHandler, logger watermill.LoggerAdapter) (*Ingest, error) {
	if bus == nil {
		return nil, ErrNilPublisher
	}
	if proc == nil {
		return nil, fmt.Errorf("%w: nil event handler", ErrInvalidConfig)
	}
	if logger == nil {
		logger = NewLogger()
	}
	return &Ingest{
		cfg:     cfg,
		bus:     bus,
		proc:    proc,
		logger:  logger,
		started: make(chan struct{}),
	}, nil
}

func (in *Ingest) newRouter() (*message.Router, error) {
	rc := in.cfg.Router
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: rc.CloseTimeout}, in.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	if rc.ThrottlePerSecond > 0 {
		router.AddMiddleware(middleware.NewThrottle(rc.ThrottlePerSecond, time.Second).Middleware)
	}

	if in.cfg.PoisonSubject != "" {
		poison, err := middleware.PoisonQueue(in.bus.Publisher(), in.cfg.PoisonSubject)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poison)
	}

	retry := middleware.Retry{
		MaxRetries:      rc.RetryMaxRetries,
		InitialInterval: rc.RetryInitialInterval,
		MaxInterval:     rc.RetryMaxInterval,
		Multiplier:      rc.RetryMultiplier,
		Logger:          in.logger,
	}
	router.AddMiddleware(retry.Middleware, middleware.Recoverer)

	sub, err := in.bus.NewSubscriber()
	if err != nil {
		return nil, err
	}
	router.AddConsumerHandler(positionHandlerName, in.cfg.PositionSubject, sub, PositionHandler(in.proc))

	return router, nil
}

// Serve runs the router until ctx is done.
func (in *Ingest) Serve(ctx context.Context) error {
	router, err := in.newRouter()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			if in.running.CompareAndSwap(false, true) {
				logging.Info().Str("subject", in.cfg.PositionSubject).Msg("Position ingest running")
			}
			in.startedOnce.Do(func() { close(in.started) })
		case <-ctx.Done():
		}
	}()

	err = router.Run(ctx)
	in.running.Store(false)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("position router: %w", err)
	}
	return errors.New("position router stopped unexpectedly")
}

// Started is closed once the router has been running for the first time.
func (in *Ingest) Started() <-chan struct{} { return in.started }

// IsRunning reports whether the router is consuming.
func (in *Ingest) IsRunning() bool { return in.running.Load() }

func (in *Ingest) String() string { return positionHandlerName }

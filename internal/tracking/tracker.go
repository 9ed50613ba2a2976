// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package tracking maintains the continuity status of intermittently
// reporting radio targets.
//
// A position report flows through the Processor, which resolves the
// target's class, applies debounce and confirmation-window rules, and
// updates the Registry. The Sweeper periodically escalates silent targets
// to lost and evicts them. Every status transition is de-duplicated by the
// Publisher before it reaches a Sink, and every registry mutation is
// offered to Observers such as the stream sequencer.
//
//	t, err := tracking.New(cfg, sink, timeutil.RealClock{})
//	t.Processor.Handle(tracking.PositionEvent{TrackingKey: "urn:mrn:imo:mmsi:230123456", Timestamp: ts})
package tracking

import (
	"fmt"
	"time"

	"github.com/tomtom215/lookout/internal/timeutil"
)

// Config holds the values consumed by the tracking core.
type Config struct {
	Thresholds    ThresholdTable
	Debounce      time.Duration
	SweepInterval time.Duration
	TrailCapacity int
	DrainTimeout  time.Duration
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:    DefaultThresholds(),
		Debounce:      MaxDebounce,
		SweepInterval: DefaultSweepInterval,
		TrailCapacity: DefaultTrailCapacity,
		DrainTimeout:  DefaultDrainTimeout,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Debounce <= 0 || c.Debounce > MaxDebounce {
		return fmt.Errorf("debounce must be in (0, %s], got %s", MaxDebounce, c.Debounce)
	}
	if c.TrailCapacity < 1 {
		return fmt.Errorf("trail capacity must be at least 1, got %d", c.TrailCapacity)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", c.SweepInterval)
	}
	if limit := c.Thresholds.MinInterval(); c.SweepInterval > limit {
		return fmt.Errorf("sweep interval %s exceeds tightest threshold %s", c.SweepInterval, limit)
	}
	return nil
}

// Tracker bundles the components sharing one registry.
type Tracker struct {
	Registry  *Registry
	Publisher *Publisher
	Processor *Processor
	Sweeper   *Sweeper
}

// New validates cfg and wires a Tracker delivering notifications to sink.
func New(cfg Config, sink Sink, clock timeutil.Clock) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	reg := NewRegistry()
	pub := NewPublisher(sink, clock, cfg.DrainTimeout)
	return &Tracker{
		Registry:  reg,
		Publisher: pub,
		Processor: NewProcessor(reg, pub, cfg, clock),
		Sweeper:   NewSweeper(reg, pub, cfg, clock),
	}, nil
}

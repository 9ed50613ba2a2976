// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/timeutil"
)

// DefaultSweepInterval is the sweep cadence when none is configured.
const DefaultSweepInterval = 5 * time.Second

// SweepResult summarises one sweep.
type SweepResult struct {
	Scanned int
	Lost    int
	Removed int
	Skipped bool
}

// Sweeper escalates silent targets to lost and evicts them once they have
// been silent for their class's removeAfter.
type Sweeper struct {
	reg        *Registry
	publisher  *Publisher
	thresholds ThresholdTable
	order      []Class
	clock      timeutil.Clock
	interval   time.Duration

	running atomic.Bool
}

// NewSweeper creates a Sweeper. Thresholds must already be validated.
func NewSweeper(reg *Registry, publisher *Publisher, cfg Config, clock timeutil.Clock) *Sweeper {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		reg:        reg,
		publisher:  publisher,
		thresholds: cfg.Thresholds,
		order:      cfg.Thresholds.SweepOrder(),
		clock:      clock,
		interval:   interval,
	}
}

// Serve runs sweeps on the configured interval until ctx is cancelled.
// The ticker is stopped on return so no sweep fires after shutdown.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Sweep scheduler started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Sweep scheduler stopped")
			return ctx.Err()
		case <-ticker.C():
			s.Sweep()
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (s *Sweeper) String() string {
	return "sweep-scheduler"
}

// Sweep performs one full pass over the registry. If a sweep is already in
// progress the call returns immediately with Skipped set.
func (s *Sweeper) Sweep() SweepResult {
	if !s.running.CompareAndSwap(false, true) {
		metrics.RecordSweepSkipped()
		logging.Warn().Msg("Previous sweep still running, skipping tick")
		return SweepResult{Skipped: true}
	}
	defer s.running.Store(false)

	start := time.Now()
	now := s.clock.Now()

	r := s.reg
	r.mu.Lock()
	res := s.sweepLocked(now)
	stats := r.statsLocked()
	r.mu.Unlock()

	metrics.RecordSweep(time.Since(start), res.Lost, res.Removed)
	metrics.SetTargetCounts(stats.statusCounts())
	if res.Lost > 0 || res.Removed > 0 {
		logging.Debug().
			Int("scanned", res.Scanned).
			Int("lost", res.Lost).
			Int("removed", res.Removed).
			Msg("Sweep completed")
	}
	return res
}

func (s *Sweeper) sweepLocked(now time.Time) SweepResult {
	r := s.reg
	byClass := make(map[Class][]*Target)
	for _, t := range r.targets {
		byClass[t.Class] = append(byClass[t.Class], t)
	}

	var res SweepResult
	for _, class := range s.order {
		targets := byClass[class]
		sort.Slice(targets, func(i, j int) bool { return targets[i].Key < targets[j].Key })
		th := s.thresholds.Lookup(class)

		for _, t := range targets {
			res.Scanned++
			elapsed := now.Sub(t.LastPositionAt)

			switch {
			case elapsed >= th.RemoveAfter:
				s.publisher.Publish(t.Key, StatusRemove)
				r.deleteLocked(t)
				res.Removed++
				logging.Info().
					Str("tracking_key", t.Key).
					Str("class", string(class)).
					Dur("silence", elapsed).
					Msg("Target removed")

			case elapsed >= th.LostAfter:
				changed := t.MsgCount != 0 || t.Status != StatusLost
				t.MsgCount = 0
				if t.Status != StatusLost {
					t.Status = StatusLost
					res.Lost++
				}
				s.publisher.Publish(t.Key, StatusLost)
				if changed {
					r.notifyLocked(OpUpdate, t)
				}
			}
		}
	}
	return res
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"errors"
	"strings"
	"time"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/timeutil"
)

// MaxDebounce is the upper bound on the debounce interval.
const MaxDebounce = 500 * time.Millisecond

// ErrMalformedKey is reported for events without a usable tracking key.
var ErrMalformedKey = errors.New("position event has no tracking key")

// Outcome is the result of handling one position event.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeDebounced
	OutcomeStale
	OutcomeMalformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDebounced:
		return "debounced"
	case OutcomeStale:
		return "stale"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Processor applies position events to the registry.
type Processor struct {
	reg        *Registry
	publisher  *Publisher
	thresholds ThresholdTable
	clock      timeutil.Clock
	debounce   time.Duration
	trailCap   int
}

// NewProcessor creates a Processor. Thresholds must already be validated.
func NewProcessor(reg *Registry, publisher *Publisher, cfg Config, clock timeutil.Clock) *Processor {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Processor{
		reg:        reg,
		publisher:  publisher,
		thresholds: cfg.Thresholds,
		clock:      clock,
		debounce:   cfg.Debounce,
		trailCap:   cfg.TrailCapacity,
	}
}

// Handle applies one event. It never blocks on I/O and never fails: events
// that cannot be applied are discarded and the reason is returned.
func (p *Processor) Handle(ev PositionEvent) Outcome {
	outcome := p.handle(ev)
	metrics.RecordTrackingEvent(outcome.String())
	return outcome
}

func (p *Processor) handle(ev PositionEvent) Outcome {
	key := strings.TrimSpace(ev.TrackingKey)
	if key == "" {
		logging.Debug().Err(ErrMalformedKey).Msg("Discarding position event")
		return OutcomeMalformed
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = p.clock.Now()
	}

	r := p.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.targets[key]
	if exists {
		if ts.Before(t.LastPositionAt) {
			return OutcomeStale
		}
		if ts.Sub(t.LastPositionAt) <= p.debounce {
			return OutcomeDebounced
		}
	}

	class := ResolveClass(key, ev.ExplicitClass)
	th := p.thresholds.Lookup(class)

	op := OpUpdate
	if !exists {
		t = newTarget(key, class, ts, p.trailCap)
		r.targets[key] = t
		op = OpAdd
	}
	prev := t.Status
	t.Class = class

	if ev.SecondaryID != "" && ev.SecondaryID != t.SecondaryID {
		t.SecondaryID = ev.SecondaryID
		p.bindSecondary(t)
	}
	t.Conflicted = r.resolver.Conflicted(key)

	if t.MsgCount > th.ConfirmAfterMsgs {
		t.MsgCount = th.ConfirmAfterMsgs
	}
	if exists && t.Status == StatusUnconfirmed &&
		t.MsgCount > 0 && t.MsgCount < th.ConfirmAfterMsgs &&
		ts.Sub(t.LastPositionAt) > th.ConfirmMaxAge {
		logging.Debug().
			Str("tracking_key", key).
			Int("msg_count", t.MsgCount).
			Dur("gap", ts.Sub(t.LastPositionAt)).
			Msg("Confirmation window exceeded, resetting count")
		t.MsgCount = 0
	}

	t.LastPositionAt = ts
	if ev.Position != nil {
		pos := *ev.Position
		if pos.At.IsZero() {
			pos.At = ts
		}
		t.Position = &pos
		t.trail.push(pos)
	}
	if t.MsgCount < th.ConfirmAfterMsgs {
		t.MsgCount++
	}

	next := StatusUnconfirmed
	if !t.Conflicted && t.MsgCount >= th.ConfirmAfterMsgs {
		next = StatusConfirmed
	}
	if prev == StatusLost {
		metrics.RecordReacquisition(string(class))
		logging.Info().
			Str("tracking_key", key).
			Str("class", string(class)).
			Str("status", string(next)).
			Msg("Target re-acquired")
	}
	t.Status = next

	p.publisher.Publish(key, next)
	r.notifyLocked(op, t)
	return OutcomeAccepted
}

// bindSecondary records t's secondary id and propagates any conflict it
// creates or resolves. Caller holds the registry lock.
func (p *Processor) bindSecondary(t *Target) {
	r := p.reg
	conflicted, resolved := r.resolver.Bind(t.Key, t.SecondaryID)

	for _, k := range resolved {
		if other, ok := r.targets[k]; ok && other.Conflicted {
			other.Conflicted = false
			r.notifyLocked(OpUpdate, other)
		}
	}
	if len(conflicted) == 0 {
		return
	}

	metrics.RecordConflict()
	logging.Warn().
		Str("secondary_id", t.SecondaryID).
		Strs("tracking_keys", conflicted).
		Msg("Secondary identifier claimed by multiple targets")

	for _, k := range conflicted {
		if k == t.Key {
			continue
		}
		other, ok := r.targets[k]
		if !ok {
			continue
		}
		changed := !other.Conflicted
		other.Conflicted = true
		if other.Status == StatusConfirmed {
			other.Status = StatusUnconfirmed
			p.publisher.Publish(k, StatusUnconfirmed)
			changed = true
		}
		if changed {
			r.notifyLocked(OpUpdate, other)
		}
	}
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/timeutil"
)

// Notification is one outbound status transition.
type Notification struct {
	TrackingKey string    `json:"trackingKey"`
	Status      Status    `json:"status"`
	At          time.Time `json:"at"`
}

// Sink delivers notifications to the outside world. Deliver is only ever
// called from the publisher's Serve goroutine, one notification at a time.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, n Notification) error

// Deliver calls f(ctx, n).
func (f SinkFunc) Deliver(ctx context.Context, n Notification) error { return f(ctx, n) }

// DefaultDrainTimeout bounds how long Serve keeps delivering after shutdown.
const DefaultDrainTimeout = 5 * time.Second

// Publisher de-duplicates status transitions and hands them to a Sink.
//
// Publish is called with the registry lock held and never blocks: accepted
// notifications go onto an unbounded queue that Serve drains.
type Publisher struct {
	sink         Sink
	clock        timeutil.Clock
	drainTimeout time.Duration

	mu     sync.Mutex
	last   map[string]Status
	queue  []Notification
	signal chan struct{}
}

// NewPublisher creates a Publisher delivering to sink.
func NewPublisher(sink Sink, clock timeutil.Clock, drainTimeout time.Duration) *Publisher {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	return &Publisher{
		sink:         sink,
		clock:        clock,
		drainTimeout: drainTimeout,
		last:         make(map[string]Status),
		signal:       make(chan struct{}, 1),
	}
}

// Publish emits a notification if status differs from the last one emitted
// for key. It reports whether a notification was queued. Publishing
// StatusRemove forgets key, so a later target under the same key starts
// from a clean slate.
func (p *Publisher) Publish(key string, status Status) bool {
	p.mu.Lock()
	if prev, ok := p.last[key]; ok && prev == status {
		p.mu.Unlock()
		return false
	}
	if status == StatusRemove {
		delete(p.last, key)
	} else {
		p.last[key] = status
	}
	p.queue = append(p.queue, Notification{TrackingKey: key, Status: status, At: p.clock.Now()})
	p.mu.Unlock()

	metrics.RecordStatusTransition(string(status))
	select {
	case p.signal <- struct{}{}:
	default:
	}
	return true
}

// LastPublished returns the last status emitted for key.
func (p *Publisher) LastPublished(key string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.last[key]
	return s, ok
}

// Pending returns the number of queued, undelivered notifications.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Serve drains the queue into the sink until ctx is cancelled, then keeps
// delivering what is already queued for up to the drain timeout.
func (p *Publisher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
			p.flush(drainCtx)
			cancel()
			if n := p.Pending(); n > 0 {
				logging.Warn().Int("pending", n).Msg("Status publisher stopped with undelivered notifications")
			}
			return ctx.Err()
		case <-p.signal:
			p.flush(ctx)
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (p *Publisher) String() string {
	return "status-publisher"
}

func (p *Publisher) flush(ctx context.Context) {
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for i, n := range batch {
			if ctx.Err() != nil {
				p.requeue(batch[i:])
				return
			}
			if err := p.sink.Deliver(ctx, n); err != nil {
				metrics.RecordNotificationError()
				logging.Error().Err(err).
					Str("tracking_key", n.TrackingKey).
					Str("status", string(n.Status)).
					Msg("Failed to deliver status notification")
			}
		}
	}
}

// requeue puts undelivered notifications back at the head of the queue.
func (p *Publisher) requeue(rest []Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = append(append([]Notification(nil), rest...), p.queue...)
}

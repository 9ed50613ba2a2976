// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/timeutil"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingSink captures delivered notifications.
type recordingSink struct {
	mu   sync.Mutex
	got  []Notification
	fail error
}

func (s *recordingSink) Deliver(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.fail
}

func (s *recordingSink) all() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.got...)
}

// recordingObserver captures registry mutations.
type recordingObserver struct {
	ops   []Op
	views []TargetView
}

func (o *recordingObserver) TargetChanged(op Op, v TargetView) {
	o.ops = append(o.ops, op)
	o.views = append(o.views, v)
}

func newTestTracker(t *testing.T) (*Tracker, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	tr, err := New(DefaultConfig(), &recordingSink{}, clock)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return tr, clock
}

// takeQueued returns and clears the publisher's pending notifications.
func takeQueued(p *Publisher) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.queue
	p.queue = nil
	return q
}

func statuses(ns []Notification) []Status {
	out := make([]Status, len(ns))
	for i, n := range ns {
		out[i] = n.Status
	}
	return out
}

func equalStatuses(a, b []Status) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// report sends an event for key at the clock's current time.
func report(tr *Tracker, clock *timeutil.MockClock, key string) Outcome {
	return tr.Processor.Handle(PositionEvent{TrackingKey: key, Timestamp: clock.Now()})
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/timeutil"
	"github.com/tomtom215/lookout/internal/tracking"
)

// Defaults for Config.
const (
	DefaultBatchWindow      = 100 * time.Millisecond
	DefaultMaxBatch         = 256
	DefaultSubscriberBuffer = 64
)

// Config controls batching and subscriber buffering.
type Config struct {
	// BatchWindow is the longest a delta waits before being flushed.
	// Zero flushes every delta as soon as the Serve loop sees it.
	BatchWindow time.Duration

	// MaxBatch flushes early once this many deltas are pending.
	MaxBatch int

	// SubscriberBuffer is the number of frames a subscriber may lag
	// before it is closed.
	SubscriberBuffer int
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig() Config {
	return Config{
		BatchWindow:      DefaultBatchWindow,
		MaxBatch:         DefaultMaxBatch,
		SubscriberBuffer: DefaultSubscriberBuffer,
	}
}

// Source is the registry view the sequencer snapshots from.
type Source interface {
	View(fn func(targets []tracking.TargetView))
}

// Sequencer assigns sequence numbers to registry mutations and fans them
// out to subscribers.
//
// Lock order is registry then sequencer: TargetChanged runs under the
// registry lock, and snapshots are taken inside Source.View.
type Sequencer struct {
	src   Source
	clock timeutil.Clock
	cfg   Config

	mu      sync.Mutex
	seq     uint64
	pending []Delta
	subs    map[*Subscription]struct{}

	kick   chan struct{}
	nextID atomic.Uint64
}

// NewSequencer creates a Sequencer over src. The counter baseline is the
// clock's current Unix time in milliseconds, so after a restart numbering
// usually starts above anything the previous process assigned. That only
// holds while the previous process averaged under one mutation per
// millisecond; consumers must treat a new connection's snapshot as a fresh
// start either way.
func NewSequencer(src Source, cfg Config, clock timeutil.Clock) *Sequencer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = DefaultMaxBatch
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultSubscriberBuffer
	}
	if cfg.BatchWindow < 0 {
		cfg.BatchWindow = 0
	}
	s := &Sequencer{
		src:   src,
		clock: clock,
		cfg:   cfg,
		seq:   uint64(clock.Now().UnixMilli()),
		subs:  make(map[*Subscription]struct{}),
		kick:  make(chan struct{}, 1),
	}
	metrics.SetStreamSequence(s.seq)
	return s
}

// TargetChanged implements tracking.Observer.
func (s *Sequencer) TargetChanged(op tracking.Op, view tracking.TargetView) {
	s.mu.Lock()
	s.seq++
	d := Delta{Seq: s.seq, TS: s.clock.Now().UnixMilli(), Key: view.Key, Op: op}
	if op != tracking.OpRemove {
		v := view
		d.Fields = &v
	}
	s.pending = append(s.pending, d)
	n := len(s.pending)
	seq := s.seq
	s.mu.Unlock()

	metrics.SetStreamSequence(seq)
	if n == 1 || n >= s.cfg.MaxBatch {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Seq returns the last assigned sequence number.
func (s *Sequencer) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Subscribers returns the number of open subscriptions.
func (s *Sequencer) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Subscribe opens a subscription. Its first frame is a snapshot; every
// later batch holds only deltas the snapshot does not already reflect.
func (s *Sequencer) Subscribe() *Subscription {
	sub := &Subscription{
		id:  s.nextID.Add(1),
		seq: s,
		ch:  make(chan Frame, s.cfg.SubscriberBuffer),
	}
	s.src.View(func(targets []tracking.TargetView) {
		s.mu.Lock()
		defer s.mu.Unlock()
		snap := s.snapshotLocked(targets)
		sub.after = snap.Seq
		sub.initial = snap.Seq
		sub.ch <- Frame{Snapshot: snap}
		s.subs[sub] = struct{}{}
	})
	metrics.TrackStreamSubscriber(true)
	metrics.RecordStreamSnapshot("subscribe")
	logging.Debug().Uint64("subscription", sub.id).Uint64("seq", sub.initial).Msg("Stream subscriber added")
	return sub
}

// Resync queues a fresh snapshot on sub. Frames already queued are still
// delivered first; deltas the new snapshot covers are not sent afterwards.
// The snapshot does not consume a sequence number, so its Seq may equal the
// ToSeq of the batch delivered just before it.
func (s *Sequencer) Resync(sub *Subscription) error {
	var err error
	s.src.View(func(targets []tracking.TargetView) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[sub]; !ok {
			err = ErrSubscriptionClosed
			return
		}
		snap := s.snapshotLocked(targets)
		if !s.sendLocked(sub, Frame{Snapshot: snap}) {
			err = ErrSubscriptionClosed
			return
		}
		sub.after = snap.Seq
	})
	if err == nil {
		metrics.RecordStreamSnapshot("resync")
	}
	return err
}

// Flush delivers all pending deltas now.
func (s *Sequencer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// Serve runs the batching loop until ctx is cancelled. On return, pending
// deltas are flushed and every subscription is closed.
func (s *Sequencer) Serve(ctx context.Context) error {
	timer := s.clock.NewTimer(time.Hour)
	timer.Stop()
	armed := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			s.Flush()
			s.closeAll()
			return ctx.Err()

		case <-s.kick:
			n := s.pendingLen()
			if n == 0 {
				continue
			}
			if n >= s.cfg.MaxBatch || s.cfg.BatchWindow == 0 {
				if armed {
					timer.Stop()
					armed = false
				}
				s.Flush()
				continue
			}
			if !armed {
				timer.Reset(s.cfg.BatchWindow)
				armed = true
			}

		case <-timer.C():
			armed = false
			s.Flush()
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (s *Sequencer) String() string {
	return "stream-sequencer"
}

func (s *Sequencer) pendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Sequencer) snapshotLocked(targets []tracking.TargetView) *Snapshot {
	return &Snapshot{
		Seq:     s.seq,
		TS:      s.clock.Now().UnixMilli(),
		Targets: targets,
	}
}

func (s *Sequencer) flushLocked() {
	if len(s.pending) == 0 {
		return
	}
	deltas := s.pending
	s.pending = nil
	metrics.RecordStreamBatch(len(deltas))

	for sub := range s.subs {
		// pending is ascending, so the unseen part is a contiguous suffix.
		i := 0
		for i < len(deltas) && deltas[i].Seq <= sub.after {
			i++
		}
		if i == len(deltas) {
			continue
		}
		part := deltas[i:]
		b := &Batch{FromSeq: part[0].Seq, ToSeq: part[len(part)-1].Seq, Deltas: part}
		if s.sendLocked(sub, Frame{Batch: b}) {
			sub.after = b.ToSeq
		}
	}
}

// sendLocked delivers f without blocking. A subscriber whose buffer is full
// is closed rather than handed a stream with a hole in it.
func (s *Sequencer) sendLocked(sub *Subscription, f Frame) bool {
	select {
	case sub.ch <- f:
		return true
	default:
		metrics.RecordStreamSubscriberDropped()
		logging.Warn().Uint64("subscription", sub.id).Msg("Stream subscriber fell behind, closing")
		s.removeLocked(sub)
		return false
	}
}

func (s *Sequencer) removeLocked(sub *Subscription) {
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.ch)
	metrics.TrackStreamSubscriber(false)
}

func (s *Sequencer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		s.removeLocked(sub)
	}
}

// Subscription is one consumer's view of the stream.
type Subscription struct {
	id      uint64
	seq     *Sequencer
	ch      chan Frame
	after   uint64 // guarded by seq.mu
	initial uint64
}

// ID returns the subscription id.
func (sub *Subscription) ID() uint64 { return sub.id }

// InitialSeq returns the sequence number of the first snapshot.
func (sub *Subscription) InitialSeq() uint64 { return sub.initial }

// C returns the frame channel. It is closed when the subscription ends.
func (sub *Subscription) C() <-chan Frame { return sub.ch }

// Close ends the subscription. Safe to call more than once.
func (sub *Subscription) Close() {
	sub.seq.mu.Lock()
	defer sub.seq.mu.Unlock()
	sub.seq.removeLocked(sub)
}

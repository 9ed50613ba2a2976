// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package stream

import (
	"fmt"
	"sort"

	"github.com/tomtom215/lookout/internal/tracking"
)

// Follower rebuilds the registry on the consumer side of a stream. It
// applies a snapshot, then deltas strictly in sequence order. On a gap it
// drops out of sync and ignores everything until the next snapshot.
type Follower struct {
	seq     uint64
	synced  bool
	targets map[string]tracking.TargetView
}

// NewFollower creates an unsynced Follower.
func NewFollower() *Follower {
	return &Follower{targets: make(map[string]tracking.TargetView)}
}

// Seq returns the last applied sequence number.
func (f *Follower) Seq() uint64 { return f.seq }

// Synced reports whether the follower holds a consistent view.
func (f *Follower) Synced() bool { return f.synced }

// Apply dispatches a frame.
func (f *Follower) Apply(fr Frame) error {
	switch {
	case fr.Snapshot != nil:
		f.ApplySnapshot(*fr.Snapshot)
		return nil
	case fr.Batch != nil:
		return f.ApplyBatch(*fr.Batch)
	default:
		return ErrUnknownMessage
	}
}

// ApplySnapshot replaces the follower's state.
func (f *Follower) ApplySnapshot(s Snapshot) {
	f.targets = make(map[string]tracking.TargetView, len(s.Targets))
	for _, t := range s.Targets {
		f.targets[t.Key] = t
	}
	f.seq = s.Seq
	f.synced = true
}

// ApplyBatch applies every delta in b in order.
func (f *Follower) ApplyBatch(b Batch) error {
	if len(b.Deltas) > 0 && (b.Deltas[0].Seq != b.FromSeq || b.Deltas[len(b.Deltas)-1].Seq != b.ToSeq) {
		f.synced = false
		return fmt.Errorf("%w: batch %d..%d does not match its deltas", ErrSequenceGap, b.FromSeq, b.ToSeq)
	}
	for _, d := range b.Deltas {
		if err := f.ApplyDelta(d); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDelta applies one delta. Deltas at or below the current sequence are
// already reflected (they were in flight when a snapshot was taken) and are
// ignored. Anything but the immediate successor is a gap.
func (f *Follower) ApplyDelta(d Delta) error {
	if !f.synced {
		return ErrNotSynced
	}
	if d.Seq <= f.seq {
		return nil
	}
	if d.Seq != f.seq+1 {
		f.synced = false
		return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, f.seq+1, d.Seq)
	}
	switch d.Op {
	case tracking.OpRemove:
		delete(f.targets, d.Key)
	default:
		if d.Fields != nil {
			f.targets[d.Key] = *d.Fields
		}
	}
	f.seq = d.Seq
	return nil
}

// Get returns one target.
func (f *Follower) Get(key string) (tracking.TargetView, bool) {
	t, ok := f.targets[key]
	return t, ok
}

// Targets returns the current view sorted by key.
func (f *Follower) Targets() []tracking.TargetView {
	out := make([]tracking.TargetView, 0, len(f.targets))
	for _, t := range f.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

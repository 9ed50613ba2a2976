// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package stream exposes the live target registry to remote consumers as a
// snapshot followed by sequenced deltas.
//
// Every registry mutation is assigned the next value of a process-wide
// sequence counter. A subscriber first receives a Snapshot tagged with the
// counter value at the moment it was taken, then batches of deltas with
// strictly greater sequence numbers. Only deltas consume numbers; delta
// numbers never repeat on a subscription. Consumers that see a gap must request
// a new snapshot; there is no retransmission buffer.
package stream

import (
	"errors"

	"github.com/tomtom215/lookout/internal/tracking"
)

// Errors returned by the stream package.
var (
	ErrSequenceGap        = errors.New("stream sequence gap")
	ErrNotSynced          = errors.New("stream follower has no snapshot")
	ErrSubscriptionClosed = errors.New("stream subscription closed")
	ErrUnknownMessage     = errors.New("unknown stream message type")
)

// Snapshot is the full registry at sequence Seq. Seq is a watermark, not a
// number of its own: it is the last delta the snapshot reflects, and the
// next delta a subscriber receives is Seq+1. A resync snapshot can carry the
// same Seq as the last batch's ToSeq when nothing changed in between.
type Snapshot struct {
	Seq     uint64                `json:"seq"`
	TS      int64                 `json:"ts"`
	Targets []tracking.TargetView `json:"targets"`
}

// Delta is one registry mutation. Fields is nil for removals.
type Delta struct {
	Seq    uint64               `json:"seq"`
	TS     int64                `json:"ts"`
	Key    string               `json:"key"`
	Op     tracking.Op          `json:"op"`
	Fields *tracking.TargetView `json:"fields,omitempty"`
}

// Batch carries the contiguous deltas FromSeq..ToSeq.
type Batch struct {
	FromSeq uint64  `json:"fromSeq"`
	ToSeq   uint64  `json:"toSeq"`
	Deltas  []Delta `json:"deltas"`
}

// Frame is one unit delivered to a subscriber: exactly one of Snapshot or
// Batch is set.
type Frame struct {
	Snapshot *Snapshot
	Batch    *Batch
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import "time"

// Status is the continuity status of a target.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusLost        Status = "lost"

	// StatusRemove is published once when a target is evicted. It is never
	// stored on a Target.
	StatusRemove Status = "remove"
)

// ParseStatus parses a status name.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusUnconfirmed, StatusConfirmed, StatusLost, StatusRemove:
		return Status(s), true
	}
	return "", false
}

// Op is the kind of registry mutation carried on the stream.
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// DefaultTrailCapacity is the number of positions retained per target.
const DefaultTrailCapacity = 120

// Position is a reported location.
type Position struct {
	Latitude  float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64   `json:"longitude" validate:"gte=-180,lte=180"`
	At        time.Time `json:"at"`
}

// PositionEvent is one inbound position report.
type PositionEvent struct {
	TrackingKey   string
	Timestamp     time.Time
	SecondaryID   string
	ExplicitClass string
	Position      *Position
}

// Target is the tracked state of one transmitter. Targets are owned by the
// Registry and must only be touched with its lock held.
type Target struct {
	Key            string
	SecondaryID    string
	Class          Class
	Status         Status
	MsgCount       int
	LastPositionAt time.Time
	FirstSeenAt    time.Time
	Conflicted     bool
	Position       *Position

	trail trail
}

func newTarget(key string, class Class, ts time.Time, trailCap int) *Target {
	return &Target{
		Key:         key,
		Class:       class,
		Status:      StatusUnconfirmed,
		FirstSeenAt: ts,
		trail:       newTrail(trailCap),
	}
}

// Trail returns the retained positions, oldest first.
func (t *Target) Trail() []Position {
	return t.trail.slice()
}

// View returns an immutable copy of the target. The trail is included only
// when withTrail is set.
func (t *Target) View(withTrail bool) TargetView {
	v := TargetView{
		Key:            t.Key,
		SecondaryID:    t.SecondaryID,
		Class:          t.Class,
		Status:         t.Status,
		MsgCount:       t.MsgCount,
		LastPositionAt: t.LastPositionAt,
		FirstSeenAt:    t.FirstSeenAt,
		Conflicted:     t.Conflicted,
	}
	if t.Position != nil {
		p := *t.Position
		v.Position = &p
	}
	if withTrail {
		v.Trail = t.trail.slice()
	}
	return v
}

// TargetView is the wire and API representation of a Target.
type TargetView struct {
	Key            string     `json:"key"`
	SecondaryID    string     `json:"secondaryId,omitempty"`
	Class          Class      `json:"class"`
	Status         Status     `json:"status"`
	MsgCount       int        `json:"msgCount"`
	LastPositionAt time.Time  `json:"lastPositionAt"`
	FirstSeenAt    time.Time  `json:"firstSeenAt"`
	Conflicted     bool       `json:"conflicted,omitempty"`
	Position       *Position  `json:"position,omitempty"`
	Trail          []Position `json:"trail,omitempty"`
}

// trail is a fixed-capacity ring of positions.
type trail struct {
	buf   []Position
	start int
	n     int
}

func newTrail(capacity int) trail {
	if capacity < 1 {
		capacity = DefaultTrailCapacity
	}
	return trail{buf: make([]Position, capacity)}
}

func (r *trail) push(p Position) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = p
		r.n++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

func (r *trail) len() int { return r.n }

func (r *trail) slice() []Position {
	if r.n == 0 {
		return nil
	}
	out := make([]Position, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Class is a transmitter category. Each class carries its own timing
// thresholds because report rates differ by orders of magnitude between,
// say, a moving Class A vessel and a fixed aid to navigation.
type Class string

// Supported classes. The set is closed; anything else resolves to ClassB.
const (
	ClassA        Class = "A"
	ClassB        Class = "B"
	ClassATON     Class = "ATON"
	ClassBASE     Class = "BASE"
	ClassSAR      Class = "SAR"
	ClassAIRCRAFT Class = "AIRCRAFT"
)

// DefaultClass is used when neither an explicit tag nor a key namespace
// identifies the class.
const DefaultClass = ClassB

// AllClasses lists every supported class in declaration order.
var AllClasses = []Class{ClassA, ClassB, ClassATON, ClassBASE, ClassSAR, ClassAIRCRAFT}

// ParseClass parses a class tag case-insensitively.
func ParseClass(s string) (Class, bool) {
	c := Class(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllClasses {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Valid reports whether c is a supported class.
func (c Class) Valid() bool {
	for _, known := range AllClasses {
		if c == known {
			return true
		}
	}
	return false
}

// Thresholds are the timing and count parameters governing one class.
type Thresholds struct {
	// ConfirmAfterMsgs is the number of accepted reports needed to confirm.
	ConfirmAfterMsgs int `koanf:"confirm_after_msgs" json:"confirmAfterMsgs"`

	// ConfirmMaxAge is the longest gap between reports while a target is
	// accumulating its confirmation count.
	ConfirmMaxAge time.Duration `koanf:"confirm_max_age" json:"confirmMaxAge"`

	// LostAfter is the silence after which a target is lost.
	LostAfter time.Duration `koanf:"lost_after" json:"lostAfter"`

	// RemoveAfter is the silence after which a target is removed.
	RemoveAfter time.Duration `koanf:"remove_after" json:"removeAfter"`
}

// Threshold validation errors.
var (
	ErrInvalidConfirmCount = errors.New("confirm_after_msgs must be at least 1")
	ErrNonPositiveDuration = errors.New("threshold durations must be positive")
	ErrThresholdOrder      = errors.New("thresholds must satisfy confirm_max_age <= lost_after <= remove_after")
)

// Validate checks the ordering invariant confirmMaxAge <= lostAfter <= removeAfter.
func (t Thresholds) Validate() error {
	if t.ConfirmAfterMsgs < 1 {
		return ErrInvalidConfirmCount
	}
	if t.ConfirmMaxAge <= 0 || t.LostAfter <= 0 || t.RemoveAfter <= 0 {
		return ErrNonPositiveDuration
	}
	if t.ConfirmMaxAge > t.LostAfter || t.LostAfter > t.RemoveAfter {
		return fmt.Errorf("%w (got %s, %s, %s)", ErrThresholdOrder, t.ConfirmMaxAge, t.LostAfter, t.RemoveAfter)
	}
	return nil
}

// ThresholdTable maps each class to its thresholds. It is read-only once
// handed to the processor and sweeper.
type ThresholdTable map[Class]Thresholds

// DefaultThresholds returns the built-in table.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		ClassA:        {ConfirmAfterMsgs: 2, ConfirmMaxAge: 3 * time.Minute, LostAfter: 6 * time.Minute, RemoveAfter: 9 * time.Minute},
		ClassB:        {ConfirmAfterMsgs: 3, ConfirmMaxAge: 6 * time.Minute, LostAfter: 10 * time.Minute, RemoveAfter: 15 * time.Minute},
		ClassATON:     {ConfirmAfterMsgs: 1, ConfirmMaxAge: 10 * time.Minute, LostAfter: 15 * time.Minute, RemoveAfter: 60 * time.Minute},
		ClassBASE:     {ConfirmAfterMsgs: 1, ConfirmMaxAge: 30 * time.Second, LostAfter: time.Minute, RemoveAfter: 10 * time.Minute},
		ClassSAR:      {ConfirmAfterMsgs: 2, ConfirmMaxAge: time.Minute, LostAfter: 2 * time.Minute, RemoveAfter: 10 * time.Minute},
		ClassAIRCRAFT: {ConfirmAfterMsgs: 2, ConfirmMaxAge: 30 * time.Second, LostAfter: time.Minute, RemoveAfter: 3 * time.Minute},
	}
}

// Lookup returns the thresholds for c, falling back to the default class.
func (tt ThresholdTable) Lookup(c Class) Thresholds {
	if th, ok := tt[c]; ok {
		return th
	}
	return tt[DefaultClass]
}

// Validate checks that every supported class is present and well ordered.
func (tt ThresholdTable) Validate() error {
	for _, c := range AllClasses {
		th, ok := tt[c]
		if !ok {
			return fmt.Errorf("class %s: missing thresholds", c)
		}
		if err := th.Validate(); err != nil {
			return fmt.Errorf("class %s: %w", c, err)
		}
	}
	for c := range tt {
		if !c.Valid() {
			return fmt.Errorf("unsupported class %q in threshold table", c)
		}
	}
	return nil
}

// SweepOrder returns the classes ordered by ascending RemoveAfter, ties
// broken by class name. Sweeps visit classes in this order so that the
// shortest-lived targets are evicted first.
func (tt ThresholdTable) SweepOrder() []Class {
	order := make([]Class, 0, len(tt))
	for c := range tt {
		order = append(order, c)
	}
	sort.Slice(order, func(i, j int) bool {
		ri, rj := tt[order[i]].RemoveAfter, tt[order[j]].RemoveAfter
		if ri != rj {
			return ri < rj
		}
		return order[i] < order[j]
	})
	return order
}

// MinInterval returns the smallest ConfirmMaxAge or LostAfter across classes.
// A sweep interval longer than this would let escalation lag a full window.
func (tt ThresholdTable) MinInterval() time.Duration {
	var smallest time.Duration
	for _, th := range tt {
		for _, d := range []time.Duration{th.ConfirmMaxAge, th.LostAfter} {
			if smallest == 0 || d < smallest {
				smallest = d
			}
		}
	}
	return smallest
}

// Clone returns a copy of the table.
func (tt ThresholdTable) Clone() ThresholdTable {
	out := make(ThresholdTable, len(tt))
	for c, th := range tt {
		out[c] = th
	}
	return out
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"sort"
	"sync"
)

// Observer is notified of every registry mutation. TargetChanged is called
// with the registry lock held, so implementations must not block and must
// not call back into the Registry.
type Observer interface {
	TargetChanged(op Op, view TargetView)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(op Op, view TargetView)

// TargetChanged calls f(op, view).
func (f ObserverFunc) TargetChanged(op Op, view TargetView) { f(op, view) }

// Registry is the authoritative set of live targets. Every mutation, from
// the position processor or the sweeper, is serialized through mu.
type Registry struct {
	mu        sync.Mutex
	targets   map[string]*Target
	resolver  *Resolver
	observers []Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		targets:  make(map[string]*Target),
		resolver: NewResolver(),
	}
}

// AddObserver registers o for mutation callbacks. Observers should be added
// before events start flowing.
func (r *Registry) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Get returns a view of one target, including its trail.
func (r *Registry) Get(key string) (TargetView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[key]
	if !ok {
		return TargetView{}, false
	}
	return t.View(true), true
}

// Len returns the number of live targets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.targets)
}

// Snapshot returns views of all targets sorted by key.
func (r *Registry) Snapshot(withTrail bool) []TargetView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(withTrail)
}

// View calls fn with a full snapshot (trails included) while the registry
// lock is held. No mutation can interleave with fn, which lets callers pair
// the snapshot with state that is only advanced from observer callbacks.
func (r *Registry) View(fn func(targets []TargetView)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.snapshotLocked(true))
}

// Stats summarises the registry by status and class.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[Status]int `json:"byStatus"`
	ByClass    map[Class]int  `json:"byClass"`
	Conflicted int            `json:"conflicted"`
}

// Stats returns current counts.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Registry) snapshotLocked(withTrail bool) []TargetView {
	out := make([]TargetView, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t.View(withTrail))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// notifyLocked fans a mutation out to observers. Caller holds mu.
func (r *Registry) notifyLocked(op Op, t *Target) {
	if len(r.observers) == 0 {
		return
	}
	view := t.View(false)
	if op == OpRemove {
		view = TargetView{Key: t.Key, Class: t.Class, Status: StatusRemove}
	}
	for _, o := range r.observers {
		o.TargetChanged(op, view)
	}
}

// deleteLocked removes a target and releases its secondary binding. Keys
// whose conflict is resolved by the removal have their flag cleared; their
// status is recomputed on their next accepted report.
func (r *Registry) deleteLocked(t *Target) {
	delete(r.targets, t.Key)
	r.notifyLocked(OpRemove, t)
	for _, k := range r.resolver.Unbind(t.Key) {
		if other, ok := r.targets[k]; ok && other.Conflicted {
			other.Conflicted = false
			r.notifyLocked(OpUpdate, other)
		}
	}
}

// statsLocked is Stats without locking. Caller holds mu.
func (r *Registry) statsLocked() Stats {
	s := Stats{
		Total:    len(r.targets),
		ByStatus: make(map[Status]int),
		ByClass:  make(map[Class]int),
	}
	for _, t := range r.targets {
		s.ByStatus[t.Status]++
		s.ByClass[t.Class]++
		if t.Conflicted {
			s.Conflicted++
		}
	}
	return s
}

// statusCounts returns counts keyed by status name, including zeroes.
func (s Stats) statusCounts() map[string]int {
	out := map[string]int{
		string(StatusUnconfirmed): 0,
		string(StatusConfirmed):   0,
		string(StatusLost):        0,
	}
	for st, n := range s.ByStatus {
		out[string(st)] = n
	}
	return out
}

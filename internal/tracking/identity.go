// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"sort"
	"strings"

	"github.com/tomtom215/lookout/internal/logging"
)

// namespacePrefixes maps tracking-key namespaces to classes. Checked in order.
var namespacePrefixes = []struct {
	prefix string
	class  Class
}{
	{"atons.", ClassATON},
	{"shore.basestations.", ClassBASE},
	{"sar.", ClassSAR},
	{"aircraft.", ClassAIRCRAFT},
}

// ResolveClass derives the class of a report. An explicit tag naming a
// supported class wins; otherwise the key namespace decides, and anything
// unrecognised is treated as DefaultClass.
func ResolveClass(key, explicit string) Class {
	if explicit != "" {
		if c, ok := ParseClass(explicit); ok {
			return c
		}
		logging.Debug().
			Str("tracking_key", key).
			Str("class_tag", explicit).
			Msg("Ignoring unsupported class tag")
	}
	for _, ns := range namespacePrefixes {
		if strings.HasPrefix(key, ns.prefix) {
			return ns.class
		}
	}
	return DefaultClass
}

// Resolver tracks which tracking keys claim which secondary identifier.
// Two or more live keys sharing one secondary identifier are in conflict.
//
// Resolver is not safe for concurrent use; the registry lock guards it.
type Resolver struct {
	owners      map[string]map[string]struct{} // secondary id -> keys
	secondaryOf map[string]string              // key -> secondary id
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		owners:      make(map[string]map[string]struct{}),
		secondaryOf: make(map[string]string),
	}
}

// Bind records that key claims secondaryID. An empty secondaryID is a no-op.
// If key previously claimed a different id it is moved. The returned slice
// holds every key sharing secondaryID (sorted) when there is more than one,
// and the second slice holds keys whose conflict was resolved by the move.
func (r *Resolver) Bind(key, secondaryID string) (conflicted, resolved []string) {
	if secondaryID == "" {
		return nil, nil
	}
	if prev, ok := r.secondaryOf[key]; ok {
		if prev == secondaryID {
			return r.sharing(secondaryID), nil
		}
		resolved = r.release(key, prev)
	}

	set, ok := r.owners[secondaryID]
	if !ok {
		set = make(map[string]struct{})
		r.owners[secondaryID] = set
	}
	set[key] = struct{}{}
	r.secondaryOf[key] = secondaryID
	return r.sharing(secondaryID), resolved
}

// Unbind releases key's claim. It returns the keys left without a conflict
// as a result (at most one, the sole remaining holder).
func (r *Resolver) Unbind(key string) []string {
	prev, ok := r.secondaryOf[key]
	if !ok {
		return nil
	}
	return r.release(key, prev)
}

// Conflicted reports whether key shares its secondary id with another key.
func (r *Resolver) Conflicted(key string) bool {
	id, ok := r.secondaryOf[key]
	if !ok {
		return false
	}
	return len(r.owners[id]) > 1
}

// SecondaryOf returns the secondary id bound to key.
func (r *Resolver) SecondaryOf(key string) (string, bool) {
	id, ok := r.secondaryOf[key]
	return id, ok
}

func (r *Resolver) release(key, secondaryID string) []string {
	delete(r.secondaryOf, key)
	set := r.owners[secondaryID]
	wasShared := len(set) > 1
	delete(set, key)
	if len(set) == 0 {
		delete(r.owners, secondaryID)
		return nil
	}
	if wasShared && len(set) == 1 {
		return keysOf(set)
	}
	return nil
}

func (r *Resolver) sharing(secondaryID string) []string {
	set := r.owners[secondaryID]
	if len(set) < 2 {
		return nil
	}
	return keysOf(set)
}

func keysOf(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

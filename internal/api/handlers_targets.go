// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lookout/internal/models"
	"github.com/tomtom215/lookout/internal/tracking"
	"github.com/tomtom215/lookout/internal/validation"
)

type targetFilter struct {
	Status string `query:"status" validate:"targetstatus"`
	Class  string `query:"class" validate:"trackingclass"`
	Trail  bool   `query:"trail"`
}

func (f *targetFilter) match(v *tracking.TargetView) bool {
	if f.Status != "" && string(v.Status) != f.Status {
		return false
	}
	if f.Class != "" {
		class, _ := tracking.ParseClass(f.Class)
		if v.Class != class {
			return false
		}
	}
	return true
}

// ListTargets handles GET /api/v1/targets?status=&class=&trail=.
func (h *Handler) ListTargets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := targetFilter{
		Status: q.Get("status"),
		Class:  q.Get("class"),
		Trail:  q.Get("trail") == "true",
	}
	if verr := validation.ValidateStruct(&filter); verr != nil {
		respondValidationError(w, verr)
		return
	}

	seq := h.streamSeq()
	all := h.cfg.Targets.Snapshot(filter.Trail)
	targets := make([]tracking.TargetView, 0, len(all))
	for i := range all {
		if filter.match(&all[i]) {
			targets = append(targets, all[i])
		}
	}

	count := len(targets)
	respondSuccess(w, http.StatusOK, models.TargetList{
		Targets: targets,
		Stats:   h.cfg.Targets.Stats(),
	}, models.Metadata{Count: &count, StreamSeq: seq})
}

// GetTarget handles GET /api/v1/targets/{key}. The trail is always included.
func (h *Handler) GetTarget(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid tracking key", nil)
		return
	}

	seq := h.streamSeq()
	view, ok := h.cfg.Targets.Get(key)
	if !ok {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Target not found", nil)
		return
	}
	respondSuccess(w, http.StatusOK, view, models.Metadata{StreamSeq: seq})
}

func (h *Handler) streamSeq() uint64 {
	if h.cfg.Stream == nil {
		return 0
	}
	return h.cfg.Stream.Seq()
}

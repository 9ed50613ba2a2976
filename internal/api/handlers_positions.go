// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package api

import (
	"bytes"
	"io"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/lookout/internal/eventprocessor"
	"github.com/tomtom215/lookout/internal/models"
)

const (
	maxIngestBody  = 1 << 20
	maxIngestBatch = 1000
)

// IngestPositions handles POST /api/v1/positions. The body is one report
// or an array of reports; each is published to the position subject and
// processed by the ingest router like any other report.
func (h *Handler) IngestPositions(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Positions == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Position ingest unavailable", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Could not read request body", err)
		return
	}
	if len(body) > maxIngestBody {
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "Request body too large", nil)
		return
	}

	reports, err := decodeReports(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Body must be a position report or an array of reports", nil)
		return
	}
	if len(reports) > maxIngestBatch {
		respondError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "Too many reports in one request", nil)
		return
	}

	msgs := make([]*message.Message, 0, len(reports))
	for _, raw := range reports {
		// Decode now so a bad report is rejected to the caller instead of
		// being dropped silently by the router.
		m, err := eventprocessor.DecodePosition(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		msg, err := eventprocessor.EncodePosition(m)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not encode report", err)
			return
		}
		msgs = append(msgs, msg)
	}

	if err := h.cfg.Positions.Publish(h.cfg.PositionSubject, msgs...); err != nil {
		respondError(w, http.StatusServiceUnavailable, "PUBLISH_FAILED", "Could not queue reports", err)
		return
	}

	respondSuccess(w, http.StatusAccepted, models.IngestResult{Accepted: len(msgs)}, models.Metadata{})
}

func decodeReports(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reports []json.RawMessage
		if err := json.Unmarshal(trimmed, &reports); err != nil {
			return nil, err
		}
		return reports, nil
	}
	var single json.RawMessage
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []json.RawMessage{single}, nil
}

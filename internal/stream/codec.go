// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package stream

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lookout/internal/tracking"
)

// Wire message types.
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypeDelta    = "delta"
	MessageTypeBatch    = "batch"
)

type snapshotMessage struct {
	Type string `json:"type"`
	Snapshot
}

type deltaMessage struct {
	Type string `json:"type"`
	Delta
}

type batchMessage struct {
	Type string `json:"type"`
	Batch
}

// EncodeFrame renders a frame as a JSON text message. A batch holding a
// single delta is sent as a plain delta message.
func EncodeFrame(fr Frame) ([]byte, error) {
	switch {
	case fr.Snapshot != nil:
		snap := *fr.Snapshot
		if snap.Targets == nil {
			snap.Targets = []tracking.TargetView{}
		}
		return json.Marshal(snapshotMessage{Type: MessageTypeSnapshot, Snapshot: snap})
	case fr.Batch != nil && len(fr.Batch.Deltas) == 1:
		return json.Marshal(deltaMessage{Type: MessageTypeDelta, Delta: fr.Batch.Deltas[0]})
	case fr.Batch != nil:
		return json.Marshal(batchMessage{Type: MessageTypeBatch, Batch: *fr.Batch})
	default:
		return nil, ErrUnknownMessage
	}
}

// DecodeFrame parses a JSON text message. A lone delta is returned as a
// one-element batch.
func DecodeFrame(data []byte) (Frame, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Frame{}, fmt.Errorf("decode stream envelope: %w", err)
	}

	switch env.Type {
	case MessageTypeSnapshot:
		var m snapshotMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return Frame{}, fmt.Errorf("decode snapshot: %w", err)
		}
		return Frame{Snapshot: &m.Snapshot}, nil
	case MessageTypeDelta:
		var m deltaMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return Frame{}, fmt.Errorf("decode delta: %w", err)
		}
		return Frame{Batch: &Batch{FromSeq: m.Seq, ToSeq: m.Seq, Deltas: []Delta{m.Delta}}}, nil
	case MessageTypeBatch:
		var m batchMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return Frame{}, fmt.Errorf("decode batch: %w", err)
		}
		return Frame{Batch: &m.Batch}, nil
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
}

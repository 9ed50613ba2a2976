// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/metrics"
	"github.com/tomtom215/lookout/internal/tracking"
	"github.com/tomtom215/lookout/internal/validation"
)

// PositionMessage is the wire form of one position report.
type PositionMessage struct {
	TrackingKey string          `json:"trackingKey"`
	Timestamp   time.Time       `json:"timestamp"`
	SecondaryID string          `json:"secondaryId,omitempty"`
	Class       string          `json:"class,omitempty"`
	Position    *PositionFields `json:"position,omitempty"`
}

// PositionFields is the optional coordinate part of a report.
type PositionFields struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Event converts the message into a processor event. The position time is
// the report timestamp.
func (m *PositionMessage) Event() tracking.PositionEvent {
	ev := tracking.PositionEvent{
		TrackingKey:   m.TrackingKey,
		Timestamp:     m.Timestamp,
		SecondaryID:   m.SecondaryID,
		ExplicitClass: m.Class,
	}
	if m.Position != nil {
		ev.Position = &tracking.Position{
			Latitude:  m.Position.Latitude,
			Longitude: m.Position.Longitude,
			At:        m.Timestamp,
		}
	}
	return ev
}

// DecodePosition parses and validates a report payload. Key checks are left
// to the processor so blank keys are counted as malformed there.
func DecodePosition(payload []byte) (*PositionMessage, error) {
	var m PositionMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if verr := validation.ValidateStruct(&m); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, verr)
	}
	return &m, nil
}

// EncodePosition serializes a report into a watermill message.
func EncodePosition(m *PositionMessage) (*message.Message, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal position: %w", err)
	}
	return message.NewMessage(watermill.NewUUID(), data), nil
}

// EventHandler is the part of the tracker the ingest path feeds.
type EventHandler interface {
	Handle(ev tracking.PositionEvent) tracking.Outcome
}

// PositionHandler returns the router handler for position reports.
// Undecodable payloads are logged, counted and acked: redelivering them can
// never succeed.
func PositionHandler(proc EventHandler) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		start := time.Now()
		metrics.RecordNATSConsume()
		defer func() { metrics.RecordNATSProcessingDuration(time.Since(start)) }()

		m, err := DecodePosition(msg.Payload)
		if err != nil {
			metrics.RecordNATSParseFailed()
			logging.Warn().
				Err(err).
				Str("message_uuid", msg.UUID).
				Int("payload_bytes", len(msg.Payload)).
				Msg("Dropping undecodable position message")
			return nil
		}

		outcome := proc.Handle(m.Event())
		if outcome != tracking.OutcomeAccepted {
			logging.Debug().
				Str("message_uuid", msg.UUID).
				Str("tracking_key", m.TrackingKey).
				Str("outcome", outcome.String()).
				Msg("Position report not applied")
		}
		return nil
	}
}

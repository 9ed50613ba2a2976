// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/tracking"
)

// StatusSink delivers status notifications to <prefix>.<status>.
type StatusSink struct {
	cfg       Config
	publisher *Publisher
}

// NewStatusSink returns a tracking.Sink that publishes through pub.
func NewStatusSink(cfg Config, pub *Publisher) (*StatusSink, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	return &StatusSink{cfg: cfg, publisher: pub}, nil
}

// Deliver publishes n. Message ids are random so consumers can dedupe
// redeliveries.
func (s *StatusSink) Deliver(ctx context.Context, n tracking.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set("tracking_key", n.TrackingKey)
	msg.Metadata.Set("status", string(n.Status))

	subject := s.cfg.StatusSubject(string(n.Status))
	if err := s.publisher.Publish(ctx, subject, msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// LogSink writes notifications to the log. It is the sink when NATS output
// is disabled.
type LogSink struct{}

// Deliver logs n.
func (LogSink) Deliver(_ context.Context, n tracking.Notification) error {
	logging.Info().
		Str("tracking_key", n.TrackingKey).
		Str("status", string(n.Status)).
		Time("at", n.At).
		Msg("Target status changed")
	return nil
}

// MultiSink delivers to every sink and joins their errors.
type MultiSink []tracking.Sink

// Deliver calls each sink in order.
func (m MultiSink) Deliver(ctx context.Context, n tracking.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

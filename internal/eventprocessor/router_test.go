// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/lookout/internal/timeutil"
	"github.com/tomtom215/lookout/internal/tracking"
)

func runIngest(t *testing.T, in *Ingest) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- in.Serve(ctx) }()

	select {
	case <-in.Started():
	case <-time.After(5 * time.Second):
		stop()
		t.Fatal("ingest router did not start")
	}
	if !in.IsRunning() {
		t.Error("IsRunning() = false after start")
	}

	return func() {
		stop()
		select {
		case err := <-done:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() = %v, want context.Canceled", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("ingest router did not stop")
		}
	}
}

func TestNewIngest_Validation(t *testing.T) {
	if _, err := NewIngest(testConfig(), nil, newRecordingHandler(), nil); !errors.Is(err, ErrNilPublisher) {
		t.Errorf("nil bus: err = %v", err)
	}
	bus := NewInProcessBus(nil)
	defer bus.Close()
	if _, err := NewIngest(testConfig(), bus, nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil handler: err = %v", err)
	}
}

func TestIngest_DeliversReports(t *testing.T) {
	cfg := testConfig()
	bus := NewInProcessBus(nil)
	defer bus.Close()

	h := newRecordingHandler()
	in, err := NewIngest(cfg, bus, h, nil)
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	stop := runIngest(t, in)
	defer stop()

	for _, key := range []string{"ais.1", "ais.2"} {
		msg, err := EncodePosition(&PositionMessage{TrackingKey: key, Timestamp: epoch})
		if err != nil {
			t.Fatalf("EncodePosition: %v", err)
		}
		if err := bus.Publisher().Publish(cfg.PositionSubject, msg); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		select {
		case <-h.seen:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of 2 reports handled", i)
		}
	}

	events := h.Events()
	if events[0].TrackingKey != "ais.1" || events[1].TrackingKey != "ais.2" {
		t.Errorf("events = %+v", events)
	}
}

func TestIngest_PanicGoesToPoisonQueue(t *testing.T) {
	cfg := testConfig()
	bus := NewInProcessBus(nil)
	defer bus.Close()

	sub, _ := bus.NewSubscriber()
	poisoned, err := sub.Subscribe(context.Background(), cfg.PoisonSubject)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	in, err := NewIngest(cfg, bus, panicHandler{}, nil)
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	stop := runIngest(t, in)
	defer stop()

	msg, _ := EncodePosition(&PositionMessage{TrackingKey: "ais.9", Timestamp: epoch})
	if err := bus.Publisher().Publish(cfg.PositionSubject, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-poisoned:
		got.Ack()
		if string(got.Payload) != string(msg.Payload) {
			t.Errorf("poisoned payload = %s", got.Payload)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("panicking report was not routed to the poison queue")
	}
}

func TestIngest_UndecodableReportIsNotPoisoned(t *testing.T) {
	cfg := testConfig()
	bus := NewInProcessBus(nil)
	defer bus.Close()

	sub, _ := bus.NewSubscriber()
	poisoned, err := sub.Subscribe(context.Background(), cfg.PoisonSubject)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	h := newRecordingHandler()
	in, err := NewIngest(cfg, bus, h, nil)
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	stop := runIngest(t, in)
	defer stop()

	bad := message.NewMessage(watermill.NewUUID(), []byte(`{"trackingKey":`))
	good, _ := EncodePosition(&PositionMessage{TrackingKey: "ais.5", Timestamp: epoch})
	if err := bus.Publisher().Publish(cfg.PositionSubject, bad, good); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-h.seen:
	case <-time.After(5 * time.Second):
		t.Fatal("valid report after an undecodable one was not handled")
	}
	if events := h.Events(); len(events) != 1 || events[0].TrackingKey != "ais.5" {
		t.Errorf("events = %+v", events)
	}

	select {
	case got := <-poisoned:
		got.Ack()
		t.Errorf("undecodable report reached the poison queue: %s", got.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIngest_FeedsTracker(t *testing.T) {
	cfg := testConfig()
	bus := NewInProcessBus(nil)
	defer bus.Close()

	clock := timeutil.NewMockClock(epoch)
	tr, err := tracking.New(tracking.DefaultConfig(), LogSink{}, clock)
	if err != nil {
		t.Fatalf("tracking.New: %v", err)
	}

	in, err := NewIngest(cfg, bus, tr.Processor, nil)
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	stop := runIngest(t, in)
	defer stop()

	msg, _ := EncodePosition(&PositionMessage{
		TrackingKey: "atons.42",
		Timestamp:   epoch,
		Position:    &PositionFields{Latitude: 50, Longitude: -1},
	})
	if err := bus.Publisher().Publish(cfg.PositionSubject, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if v, ok := tr.Registry.Get("atons.42"); ok {
			if v.Class != tracking.ClassATON || v.Status != tracking.StatusConfirmed {
				t.Errorf("target = %+v, want confirmed ATON", v)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("report never reached the registry")
}

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/lookout/internal/tracking"
)

// TestNATSBus_EndToEnd runs ingest and egress against an embedded server.
func TestNATSBus_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	srv, err := NewEmbeddedServer(EmbeddedConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	defer srv.Shutdown()
	if !srv.IsRunning() {
		t.Fatal("embedded server not running")
	}

	cfg := testConfig()
	cfg.Enabled = true
	cfg.URL = srv.ClientURL()

	bus, err := NewNATSBus(cfg, srv.ClientURL(), nil)
	if err != nil {
		t.Fatalf("NewNATSBus: %v", err)
	}
	defer bus.Close()

	h := newRecordingHandler()
	in, err := NewIngest(cfg, bus, h, nil)
	if err != nil {
		t.Fatalf("NewIngest: %v", err)
	}
	stop := runIngest(t, in)
	defer stop()

	// A plain NATS client stands in for an external feed and consumer.
	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()

	statuses, err := nc.SubscribeSync(cfg.StatusSubjectPrefix + ".>")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// The subscriber's interest may still be propagating, so publish until
	// the first report lands.
	payload := []byte(`{"trackingKey":"sar.3","timestamp":"2026-03-01T12:00:00Z"}`)
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for handled := false; !handled; {
		if err := nc.Publish(cfg.PositionSubject, payload); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case <-h.seen:
			handled = true
		case <-tick.C:
		case <-deadline:
			t.Fatal("report from NATS not handled")
		}
	}
	if got := h.Events()[0].TrackingKey; got != "sar.3" {
		t.Errorf("TrackingKey = %q", got)
	}

	pub, err := NewPublisher(bus.Publisher(), NewCircuitBreaker(cfg.CircuitBreaker))
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	sink, _ := NewStatusSink(cfg, pub)
	n := tracking.Notification{TrackingKey: "sar.3", Status: tracking.StatusConfirmed, At: epoch}
	if err := sink.Deliver(context.Background(), n); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	msg, err := statuses.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("status notification not received: %v", err)
	}
	if msg.Subject != "lookout.status.confirmed" {
		t.Errorf("subject = %q", msg.Subject)
	}
	var got tracking.Notification
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got.TrackingKey != "sar.3" || got.Status != tracking.StatusConfirmed {
		t.Errorf("notification = %+v", got)
	}
	if !bus.Connected() {
		t.Error("bus should report connected")
	}
}

func TestEmbeddedServer_ServeLeavesServerRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	srv, err := NewEmbeddedServer(EmbeddedConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	defer srv.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if !srv.IsRunning() {
		t.Fatal("server stopped when Serve returned")
	}

	srv.Shutdown()
	if srv.IsRunning() {
		t.Error("server still running after Shutdown")
	}
	srv.Shutdown()
}

func TestEmbeddedServer_ServeRestartsStoppedServer(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	srv, err := NewEmbeddedServer(EmbeddedConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer: %v", err)
	}
	defer srv.Shutdown()
	srv.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !srv.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !srv.IsRunning() {
		t.Fatal("Serve did not start a stopped server")
	}
}

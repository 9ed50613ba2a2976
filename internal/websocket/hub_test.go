// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/stream"
	"github.com/tomtom215/lookout/internal/timeutil"
	"github.com/tomtom215/lookout/internal/tracking"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

type env struct {
	tr    *tracking.Tracker
	seq   *stream.Sequencer
	hub   *Hub
	clock *timeutil.MockClock
}

func newEnv(t *testing.T, cfg HubConfig) *env {
	t.Helper()
	clock := timeutil.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	sink := tracking.SinkFunc(func(context.Context, tracking.Notification) error { return nil })
	tr, err := tracking.New(tracking.DefaultConfig(), sink, clock)
	if err != nil {
		t.Fatal(err)
	}
	seq := stream.NewSequencer(tr.Registry, stream.DefaultConfig(), clock)
	tr.Registry.AddObserver(seq)
	return &env{tr: tr, seq: seq, hub: NewHub(seq, cfg), clock: clock}
}

func (e *env) report(key string) {
	e.tr.Processor.Handle(tracking.PositionEvent{TrackingKey: key, Timestamp: e.clock.Now()})
	e.clock.Advance(time.Second)
}

// startHub runs the hub and returns a cancel func that waits for it to stop.
func startHub(t *testing.T, hub *Hub) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

// dial serves the hub on an httptest server and connects a client.
func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		if err := hub.Join(client); err != nil {
			_ = conn.Close()
			return
		}
		client.Start()
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, []byte) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env.Type, data
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewHub(t *testing.T) {
	e := newEnv(t, HubConfig{})
	if e.hub.GetClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", e.hub.GetClientCount())
	}
	if e.hub.cfg.ResyncInterval != time.Second || e.hub.cfg.ResyncBurst != 1 {
		t.Errorf("defaults not applied: %+v", e.hub.cfg)
	}
}

func TestHub_SnapshotThenDelta(t *testing.T) {
	e := newEnv(t, DefaultHubConfig())
	stop := startHub(t, e.hub)
	defer stop()

	e.report("k1")
	conn := dial(t, e.hub)

	typ, data := readFrame(t, conn)
	if typ != stream.MessageTypeSnapshot {
		t.Fatalf("first message type = %s", typ)
	}
	fr, err := stream.DecodeFrame(data)
	if err != nil || len(fr.Snapshot.Targets) != 1 {
		t.Fatalf("snapshot = %s (%v)", data, err)
	}

	waitFor(t, func() bool { return e.hub.GetClientCount() == 1 })

	e.report("k2")
	e.seq.Flush()
	typ, data = readFrame(t, conn)
	if typ != stream.MessageTypeDelta {
		t.Fatalf("expected delta, got %s", typ)
	}
	fr, _ = stream.DecodeFrame(data)
	d := fr.Batch.Deltas[0]
	if d.Seq != e.seq.Seq() || d.Op != tracking.OpAdd || d.Key != "k2" {
		t.Errorf("delta = %+v, expected add k2 at seq %d", d, e.seq.Seq())
	}
}

func TestHub_PingAndResync(t *testing.T) {
	e := newEnv(t, HubConfig{ResyncInterval: time.Hour, ResyncBurst: 1})
	stop := startHub(t, e.hub)
	defer stop()

	conn := dial(t, e.hub)
	readFrame(t, conn)

	if err := conn.WriteJSON(ControlMessage{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if typ, _ := readFrame(t, conn); typ != MessageTypePong {
		t.Errorf("expected pong, got %s", typ)
	}

	e.report("k1")
	if err := conn.WriteJSON(ControlMessage{Type: MessageTypeResync}); err != nil {
		t.Fatal(err)
	}
	typ, data := readFrame(t, conn)
	if typ != stream.MessageTypeSnapshot {
		t.Fatalf("expected snapshot after resync, got %s", typ)
	}
	if fr, _ := stream.DecodeFrame(data); len(fr.Snapshot.Targets) != 1 {
		t.Errorf("resync snapshot = %s", data)
	}

	if err := conn.WriteJSON(ControlMessage{Type: MessageTypeResync}); err != nil {
		t.Fatal(err)
	}
	typ, data = readFrame(t, conn)
	if typ != MessageTypeError || !strings.Contains(string(data), "rate limited") {
		t.Errorf("second resync = %s, expected rate limit error", data)
	}
}

func TestHub_UnknownControlMessage(t *testing.T) {
	e := newEnv(t, DefaultHubConfig())
	stop := startHub(t, e.hub)
	defer stop()

	conn := dial(t, e.hub)
	readFrame(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)); err != nil {
		t.Fatal(err)
	}
	if typ, _ := readFrame(t, conn); typ != MessageTypeError {
		t.Errorf("expected error reply, got %s", typ)
	}
}

func TestHub_ClientDisconnectUnsubscribes(t *testing.T) {
	e := newEnv(t, DefaultHubConfig())
	stop := startHub(t, e.hub)
	defer stop()

	conn := dial(t, e.hub)
	readFrame(t, conn)
	waitFor(t, func() bool { return e.hub.GetClientCount() == 1 && e.seq.Subscribers() == 1 })

	_ = conn.Close()
	waitFor(t, func() bool { return e.hub.GetClientCount() == 0 && e.seq.Subscribers() == 0 })
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	e := newEnv(t, DefaultHubConfig())
	stop := startHub(t, e.hub)

	conn := dial(t, e.hub)
	readFrame(t, conn)
	waitFor(t, func() bool { return e.hub.GetClientCount() == 1 })

	stop()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseGoingAway {
		t.Errorf("expected going-away close, got %v", err)
	}
	if e.seq.Subscribers() != 0 {
		t.Errorf("subscriptions remain after shutdown: %d", e.seq.Subscribers())
	}
}

func TestHub_JoinAfterStop(t *testing.T) {
	e := newEnv(t, DefaultHubConfig())
	stop := startHub(t, e.hub)
	stop()

	client := &Client{id: 99, hub: e.hub, sub: e.seq.Subscribe()}
	if err := e.hub.Join(client); !errors.Is(err, ErrHubStopped) {
		t.Errorf("Join after stop = %v, expected ErrHubStopped", err)
	}
	if e.seq.Subscribers() != 0 {
		t.Error("rejected client's subscription should be closed")
	}
}

func TestHub_RestartAdmitsClients(t *testing.T) {
	e := newEnv(t, DefaultHubConfig())
	stop := startHub(t, e.hub)
	stop()

	stop = startHub(t, e.hub)
	defer stop()
	waitFor(t, func() bool {
		select {
		case <-e.hub.stoppedCh():
			return false
		default:
			return true
		}
	})

	// Join must never see the previous run's stop signal.
	for i := uint64(0); i < 20; i++ {
		client := &Client{id: 100 + i, hub: e.hub, sub: e.seq.Subscribe()}
		if err := e.hub.Join(client); err != nil {
			t.Fatalf("Join %d after restart = %v", i, err)
		}
	}
	waitFor(t, func() bool { return e.hub.GetClientCount() == 20 })
}

func TestGetShutdownReason(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextCanceled {
		t.Errorf("got %s", got)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	if got := getShutdownReason(ctx); got != ShutdownReasonContextDeadline {
		t.Errorf("got %s", got)
	}
}

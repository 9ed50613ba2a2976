// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lookout/internal/eventprocessor"
	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/models"
	"github.com/tomtom215/lookout/internal/stream"
	"github.com/tomtom215/lookout/internal/timeutil"
	"github.com/tomtom215/lookout/internal/tracking"
	"github.com/tomtom215/lookout/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture is a fully wired API over a real tracker, sequencer, hub and
// in-process bus.
type fixture struct {
	tr     *tracking.Tracker
	seq    *stream.Sequencer
	hub    *websocket.Hub
	bus    eventprocessor.Bus
	clock  *timeutil.MockClock
	router http.Handler
	cfg    eventprocessor.Config
}

type fixtureOption func(*HandlerConfig, *ChiMiddlewareConfig)

func withDependencies(deps ...Dependency) fixtureOption {
	return func(hc *HandlerConfig, _ *ChiMiddlewareConfig) { hc.Dependencies = deps }
}

func withRateLimit(requests int) fixtureOption {
	return func(_ *HandlerConfig, mc *ChiMiddlewareConfig) {
		mc.RateLimitDisabled = false
		mc.RateLimitRequests = requests
		mc.RateLimitWindow = time.Minute
	}
}

func withoutIngest() fixtureOption {
	return func(hc *HandlerConfig, _ *ChiMiddlewareConfig) { hc.Positions = nil }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	clock := timeutil.NewMockClock(epoch)
	tr, err := tracking.New(tracking.DefaultConfig(), eventprocessor.LogSink{}, clock)
	if err != nil {
		t.Fatalf("tracking.New: %v", err)
	}
	seq := stream.NewSequencer(tr.Registry, stream.DefaultConfig(), clock)
	tr.Registry.AddObserver(seq)
	hub := websocket.NewHub(seq, websocket.DefaultHubConfig())

	bus := eventprocessor.NewInProcessBus(nil)
	t.Cleanup(func() { _ = bus.Close() })

	epCfg := eventprocessor.DefaultConfig()
	epCfg.Router.RetryMaxRetries = 0
	epCfg.Router.CloseTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 3)
	go func() { _ = seq.Serve(ctx); done <- struct{}{} }()
	go func() { _ = hub.RunWithContext(ctx); done <- struct{}{} }()

	ingest, err := eventprocessor.NewIngest(epCfg, bus, tr.Processor, nil)
	if err != nil {
		cancel()
		t.Fatalf("NewIngest: %v", err)
	}
	go func() { _ = ingest.Serve(ctx); done <- struct{}{} }()
	select {
	case <-ingest.Started():
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("ingest router did not start")
	}
	t.Cleanup(func() {
		cancel()
		for i := 0; i < 3; i++ {
			<-done
		}
	})

	hc := HandlerConfig{
		Targets:         tr.Registry,
		Stream:          seq,
		Hub:             hub,
		Positions:       bus.Publisher(),
		PositionSubject: epCfg.PositionSubject,
		AllowedOrigins:  []string{"https://console.example.org"},
	}
	mc := DefaultChiMiddlewareConfig()
	mc.RateLimitDisabled = true
	for _, opt := range opts {
		opt(&hc, mc)
	}

	return &fixture{
		tr:     tr,
		seq:    seq,
		hub:    hub,
		bus:    bus,
		clock:  clock,
		router: NewRouter(NewHandler(hc), NewChiMiddleware(mc)).SetupChi(),
		cfg:    epCfg,
	}
}

// report feeds one event straight into the processor and advances the
// clock past the debounce interval.
func (f *fixture) report(key string, pos *tracking.Position) {
	f.tr.Processor.Handle(tracking.PositionEvent{
		TrackingKey: key,
		Timestamp:   f.clock.Now(),
		Position:    pos,
	})
	f.clock.Advance(time.Second)
}

func (f *fixture) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// decodeResponse unmarshals the envelope and, when data is non-nil, its
// data field.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) models.APIResponse {
	t.Helper()
	var raw struct {
		models.APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data %s: %v", raw.Data, err)
		}
	}
	return raw.APIResponse
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

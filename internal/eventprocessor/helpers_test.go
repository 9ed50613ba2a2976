// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"io"
	"sync"
	"time"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/tracking"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingHandler captures processed events.
type recordingHandler struct {
	mu     sync.Mutex
	events []tracking.PositionEvent
	seen   chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{seen: make(chan struct{}, 64)}
}

func (h *recordingHandler) Handle(ev tracking.PositionEvent) tracking.Outcome {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.seen <- struct{}{}
	return tracking.OutcomeAccepted
}

func (h *recordingHandler) Events() []tracking.PositionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]tracking.PositionEvent(nil), h.events...)
}

type panicHandler struct{}

func (panicHandler) Handle(tracking.PositionEvent) tracking.Outcome {
	panic("handler exploded")
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Router.RetryMaxRetries = 0
	cfg.Router.RetryInitialInterval = time.Millisecond
	cfg.Router.RetryMaxInterval = time.Millisecond
	cfg.Router.CloseTimeout = time.Second
	return cfg
}

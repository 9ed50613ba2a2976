// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/stream"
	"github.com/tomtom215/lookout/internal/tracking"
	ws "github.com/tomtom215/lookout/internal/websocket"
)

const (
	minReconnectWait = time.Second
	maxReconnectWait = 30 * time.Second

	// resyncRetry is how long to wait for a snapshot before asking again.
	resyncRetry = 2 * time.Second
)

// tailer follows a Lookout change stream and prints status transitions.
type tailer struct {
	url      string
	out      io.Writer
	dialer   *websocket.Dialer
	follower *stream.Follower

	// resyncAt is when the pending resync was requested; zero when none is.
	resyncAt time.Time
}

func newTailer(url string, out io.Writer) *tailer {
	return &tailer{
		url:      url,
		out:      out,
		dialer:   websocket.DefaultDialer,
		follower: stream.NewFollower(),
	}
}

// run follows the stream until ctx is canceled, reconnecting with backoff.
// Every connection starts from a fresh snapshot.
func (t *tailer) run(ctx context.Context) error {
	wait := minReconnectWait
	for {
		connected, err := t.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			wait = minReconnectWait
		}
		logging.Warn().Err(err).Dur("retry_in", wait).Msg("Stream connection lost")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxReconnectWait {
			wait = maxReconnectWait
		}
	}
}

// session runs one connection. connected reports whether the dial succeeded.
// Reads happen on their own goroutine; every write, including resync
// requests repeated on the retry ticker, happens here.
func (t *tailer) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", t.url, err)
	}
	defer func() { _ = conn.Close() }()
	logging.Info().Str("url", t.url).Msg("Connected to stream")

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	t.follower = stream.NewFollower()
	t.resyncAt = time.Time{}

	done := make(chan struct{})
	defer close(done)
	messages := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case messages <- data:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(resyncRetry / 2)
	defer ticker.Stop()

	for {
		select {
		case err := <-readErr:
			return true, err
		case data := <-messages:
			if !t.handle(data) {
				continue
			}
		case now := <-ticker.C:
			if !t.resyncDue(now) {
				continue
			}
			logging.Debug().Msg("No snapshot yet, repeating resync request")
		}
		if err := conn.WriteJSON(ws.ControlMessage{Type: ws.MessageTypeResync}); err != nil {
			return true, fmt.Errorf("request resync: %w", err)
		}
		t.resyncAt = time.Now()
	}
}

// resyncDue reports whether a requested snapshot is overdue at now.
func (t *tailer) resyncDue(now time.Time) bool {
	return !t.resyncAt.IsZero() && now.Sub(t.resyncAt) >= resyncRetry
}

// handle applies one message and reports whether a resync must be requested.
// Deltas ahead of a gap are applied and printed before the gap is reported.
func (t *tailer) handle(data []byte) (resync bool) {
	fr, err := stream.DecodeFrame(data)
	if errors.Is(err, stream.ErrUnknownMessage) {
		t.handleControl(data)
		return false
	}
	if err != nil {
		logging.Warn().Err(err).Msg("Undecodable stream message")
		return false
	}

	if fr.Snapshot != nil {
		t.follower.ApplySnapshot(*fr.Snapshot)
		t.resyncAt = time.Time{}
		t.printf("snapshot seq=%d targets=%d", fr.Snapshot.Seq, len(fr.Snapshot.Targets))
		return false
	}

	for _, d := range fr.Batch.Deltas {
		seq := t.follower.Seq()
		prev, known := t.follower.Get(d.Key)

		err := t.follower.ApplyDelta(d)
		switch {
		case errors.Is(err, stream.ErrSequenceGap):
			logging.Warn().Err(err).Uint64("seq", t.follower.Seq()).Msg("Sequence gap, requesting resync")
			return true
		case errors.Is(err, stream.ErrNotSynced):
			// Waiting for a snapshot; the retry ticker repeats the request.
			return false
		case err != nil:
			logging.Warn().Err(err).Msg("Could not apply stream delta")
			return false
		}
		if t.follower.Seq() != seq {
			t.printDelta(d, prev.Status, known)
		}
	}
	return false
}

func (t *tailer) printDelta(d stream.Delta, prev tracking.Status, known bool) {
	if d.Op == tracking.OpRemove {
		t.printf("%d %s removed", d.Seq, d.Key)
		return
	}
	if d.Fields == nil {
		return
	}
	switch {
	case !known:
		t.printf("%d %s %s (class %s)", d.Seq, d.Key, d.Fields.Status, d.Fields.Class)
	case prev != d.Fields.Status:
		t.printf("%d %s %s -> %s", d.Seq, d.Key, prev, d.Fields.Status)
	}
}

func (t *tailer) handleControl(data []byte) {
	var msg ws.ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("Undecodable control message")
		return
	}
	if msg.Type == ws.MessageTypeError {
		logging.Warn().Str("message", msg.Message).Msg("Server reported an error")
	}
}

func (t *tailer) printf(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(t.out, format+"\n", args...); err != nil {
		logging.Error().Err(err).Msg("Write failed")
	}
}

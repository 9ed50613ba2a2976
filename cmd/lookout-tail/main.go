// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Command lookout-tail follows a Lookout server's change stream and prints
// one line per status transition:
//
//	$ lookout-tail -url ws://localhost:3857/api/v1/stream
//	snapshot seq=1712 targets=84
//	1713 235000001 unconfirmed (class B)
//	1714 235000001 unconfirmed -> confirmed
//	1720 atons.992 removed
//
// On a sequence gap it asks the server for a new snapshot; on disconnect it
// reconnects with backoff.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/lookout/internal/logging"
)

func main() {
	url := flag.String("url", "ws://localhost:3857/api/v1/stream", "websocket URL of the change stream")
	logLevel := flag.String("log-level", "info", "log level for diagnostics on stderr")
	flag.Parse()

	logging.Init(logging.Config{
		Level:  *logLevel,
		Format: "console",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newTailer(*url, os.Stdout).run(ctx); err != nil {
		logging.Fatal().Err(err).Msg("lookout-tail failed")
	}
}

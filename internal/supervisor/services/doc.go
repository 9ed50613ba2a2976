// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

/*
Package services adapts components whose lifecycle is not already
Serve(ctx) shaped to suture.Service.

  - HTTPServerService: ListenAndServe plus graceful Shutdown on cancellation
  - StreamHubService: the websocket hub's RunWithContext loop

The tracker's Publisher and Sweeper, the stream Sequencer, the position
Ingest router and the embedded NATS server implement suture.Service
themselves and are added to the tree directly.
*/
package services

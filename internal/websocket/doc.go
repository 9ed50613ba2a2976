// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

/*
Package websocket carries the target stream to remote clients over
gorilla/websocket.

Each Client owns one stream.Subscription. The write pump sends the initial
snapshot followed by delta and batch frames in sequence order; the read pump
accepts small control messages:

	{"type":"resync"}  request a fresh snapshot (rate limited per client)
	{"type":"ping"}    answered with {"type":"pong"}

When a client falls too far behind, the sequencer closes its subscription
and the client receives a close frame. It is expected to reconnect and start
again from a snapshot.

The Hub only tracks membership. It is supervised through RunWithContext:

	hub := websocket.NewHub(sequencer, websocket.DefaultHubConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
*/
package websocket

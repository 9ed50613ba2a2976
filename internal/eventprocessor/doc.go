// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package eventprocessor moves position reports into the tracker and status
// notifications out of it.
//
// # Ingest
//
// Reports arrive as JSON on Config.PositionSubject:
//
//	{"trackingKey":"ais.235009802","timestamp":"2026-01-02T15:04:05Z",
//	 "secondaryId":"MMSI235009802","class":"A",
//	 "position":{"latitude":50.1,"longitude":-1.4}}
//
// Ingest runs a watermill router (Recoverer, Retry, optional Throttle,
// optional PoisonQueue) whose single handler decodes the report and calls
// the processor. Undecodable reports are acked and counted rather than
// retried.
//
// # Egress
//
// StatusSink publishes every status change to <StatusSubjectPrefix>.<status>
// through a Publisher guarded by a gobreaker circuit breaker. LogSink is
// used when NATS is disabled.
//
// # Transport
//
// A Bus is either core NATS (NewNATSBus, optionally against an
// EmbeddedServer) or an in-process watermill gochannel (NewInProcessBus)
// used by NATS-less deployments and tests.
package eventprocessor

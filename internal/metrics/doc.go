// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Tracking:
  - lookout_position_events_total: events by outcome (counter)
  - lookout_status_transitions_total: emitted notifications by status (counter)
  - lookout_targets: live targets by status (gauge, refreshed every sweep)
  - lookout_identity_conflicts_total, lookout_reacquisitions_total (counters)

Sweeps:
  - lookout_sweep_duration_seconds (histogram)
  - lookout_sweep_escalations_total: by "lost" / "remove" (counter)
  - lookout_sweep_skipped_total (counter)

Stream:
  - lookout_stream_sequence (gauge)
  - lookout_stream_subscribers (gauge)
  - lookout_stream_batches_total, lookout_stream_batch_size
  - lookout_stream_snapshots_total: by "subscribe" / "resync"
  - lookout_stream_subscribers_dropped_total

Transport:
  - http_requests_total, http_request_duration_seconds
  - websocket_connections_active, websocket_resync_rate_limited_total
  - nats_messages_consumed_total, nats_messages_parse_failed_total,
    nats_messages_published_total, nats_processing_duration_seconds
  - circuit_breaker_state

# Usage

Record helpers wrap the collectors so callers never deal with label order:

	metrics.RecordTrackingEvent("accepted")
	metrics.RecordSweep(time.Since(start), lost, removed)
*/
package metrics

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracking Metrics
	TrackingEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_position_events_total",
			Help: "Total position events handled, by outcome",
		},
		[]string{"outcome"}, // "accepted", "debounced", "stale", "malformed"
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_status_transitions_total",
			Help: "Total status notifications emitted, by status",
		},
		[]string{"status"},
	)

	TargetsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lookout_targets",
			Help: "Current number of tracked targets, by status",
		},
		[]string{"status"},
	)

	IdentityConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_identity_conflicts_total",
			Help: "Total secondary identifier conflicts detected",
		},
	)

	ReacquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_reacquisitions_total",
			Help: "Total lost targets that reported again, by class",
		},
		[]string{"class"},
	)

	NotificationErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_notification_delivery_errors_total",
			Help: "Total status notifications the sink failed to deliver",
		},
	)

	// Sweep Metrics
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lookout_sweep_duration_seconds",
			Help:    "Duration of registry sweeps in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	SweepEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_sweep_escalations_total",
			Help: "Total targets escalated by sweeps, by resulting status",
		},
		[]string{"status"}, // "lost", "remove"
	)

	SweepSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_sweep_skipped_total",
			Help: "Total sweep ticks skipped because the previous sweep was still running",
		},
	)

	// Stream Metrics
	StreamSequence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_stream_sequence",
			Help: "Current stream sequence number",
		},
	)

	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lookout_stream_subscribers",
			Help: "Current number of stream subscribers",
		},
	)

	StreamBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_stream_batches_total",
			Help: "Total delta batches flushed to subscribers",
		},
	)

	StreamBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lookout_stream_batch_size",
			Help:    "Number of deltas in each flushed batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 256},
		},
	)

	StreamSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lookout_stream_snapshots_total",
			Help: "Total snapshots delivered, by reason",
		},
		[]string{"reason"}, // "subscribe", "resync"
	)

	StreamSubscribersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lookout_stream_subscribers_dropped_total",
			Help: "Total subscribers closed because their buffer was full",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSResyncRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_resync_rate_limited_total",
			Help: "Total resync requests rejected by the per-client rate limit",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// NATS Metrics
	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of position messages consumed from NATS",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_parse_failed_total",
			Help: "Total number of messages that failed to parse",
		},
	)

	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of status notifications published to NATS",
		},
	)

	NATSProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nats_processing_duration_seconds",
			Help:    "Duration of NATS message processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordTrackingEvent records the outcome of one position event
func RecordTrackingEvent(outcome string) {
	TrackingEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordStatusTransition records an emitted status notification
func RecordStatusTransition(status string) {
	StatusTransitionsTotal.WithLabelValues(status).Inc()
}

// SetTargetCounts replaces the per-status target gauges
func SetTargetCounts(byStatus map[string]int) {
	for status, n := range byStatus {
		TargetsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// RecordConflict records a secondary identifier conflict
func RecordConflict() {
	IdentityConflictsTotal.Inc()
}

// RecordReacquisition records a lost target reporting again
func RecordReacquisition(class string) {
	ReacquisitionsTotal.WithLabelValues(class).Inc()
}

// RecordNotificationError records a failed sink delivery
func RecordNotificationError() {
	NotificationErrorsTotal.Inc()
}

// RecordSweep records a completed sweep
func RecordSweep(duration time.Duration, lost, removed int) {
	SweepDuration.Observe(duration.Seconds())
	if lost > 0 {
		SweepEvictionsTotal.WithLabelValues("lost").Add(float64(lost))
	}
	if removed > 0 {
		SweepEvictionsTotal.WithLabelValues("remove").Add(float64(removed))
	}
}

// RecordSweepSkipped records a sweep tick skipped due to overlap
func RecordSweepSkipped() {
	SweepSkippedTotal.Inc()
}

// SetStreamSequence updates the stream sequence gauge
func SetStreamSequence(seq uint64) {
	StreamSequence.Set(float64(seq))
}

// TrackStreamSubscriber tracks stream subscriber count
func TrackStreamSubscriber(inc bool) {
	if inc {
		StreamSubscribers.Inc()
	} else {
		StreamSubscribers.Dec()
	}
}

// RecordStreamBatch records a flushed delta batch
func RecordStreamBatch(size int) {
	StreamBatchesTotal.Inc()
	StreamBatchSize.Observe(float64(size))
}

// RecordStreamSnapshot records a snapshot delivery
func RecordStreamSnapshot(reason string) {
	StreamSnapshotsTotal.WithLabelValues(reason).Inc()
}

// RecordStreamSubscriberDropped records a subscriber closed for falling behind
func RecordStreamSubscriberDropped() {
	StreamSubscribersDropped.Inc()
}

// TrackWSConnection tracks active WebSocket connections
func TrackWSConnection(inc bool) {
	if inc {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

// RecordWSResyncRejected records a rate-limited resync request
func RecordWSResyncRejected() {
	WSResyncRejected.Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordNATSConsume records a message being consumed from NATS
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// RecordNATSParseFailed records a message that failed to parse
func RecordNATSParseFailed() {
	NATSMessagesParseFailed.Inc()
}

// RecordNATSPublish records a message being published to NATS
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSProcessingDuration records the duration of message processing
func RecordNATSProcessingDuration(duration time.Duration) {
	NATSProcessingDuration.Observe(duration.Seconds())
}

// SetCircuitBreakerState records a breaker state (0=closed, 1=half-open, 2=open)
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

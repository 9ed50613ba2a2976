// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package models

import (
	"time"

	"github.com/tomtom215/lookout/internal/tracking"
)

// APIResponse is the envelope of every JSON response.
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
//	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Count     *int      `json:"count,omitempty"`
	// StreamSeq is the change stream position the data is consistent with.
	StreamSeq uint64 `json:"stream_seq,omitempty"`
}

// APIError is a machine-readable error code with a human-readable message.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TargetList is the body of GET /api/v1/targets.
type TargetList struct {
	Targets []tracking.TargetView `json:"targets"`
	Stats   tracking.Stats        `json:"stats"`
}

// IngestResult is the body of POST /api/v1/positions.
type IngestResult struct {
	Accepted int `json:"accepted"`
}

// ComponentStatus is the readiness of one dependency.
type ComponentStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// ReadinessStatus is the body of GET /api/v1/health/ready.
type ReadinessStatus struct {
	Ready             bool              `json:"ready"`
	Targets           int               `json:"targets"`
	StreamSeq         uint64            `json:"streamSeq"`
	StreamSubscribers int               `json:"streamSubscribers"`
	WebSocketClients  int               `json:"websocketClients"`
	Components        []ComponentStatus `json:"components"`
	Uptime            float64           `json:"uptime"`
}

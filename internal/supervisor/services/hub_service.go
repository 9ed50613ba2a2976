// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package services

import (
	"context"
)

// HubRunner is satisfied by *websocket.Hub.
type HubRunner interface {
	RunWithContext(ctx context.Context) error
}

// StreamHubService runs the websocket stream hub under a supervisor.
type StreamHubService struct {
	hub HubRunner
}

// NewStreamHubService wraps hub.
func NewStreamHubService(hub HubRunner) *StreamHubService {
	return &StreamHubService{hub: hub}
}

// Serve implements suture.Service. The hub closes every client when ctx is
// canceled, so a restart begins with no connected clients.
func (s *StreamHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer.
func (s *StreamHubService) String() string {
	return "stream-hub"
}

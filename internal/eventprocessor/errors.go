// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import "errors"

// ErrInvalidConfig is returned when messaging configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrNilPublisher is returned when a sink or router is built without a publisher.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrInvalidPayload wraps inbound position messages that cannot be decoded.
var ErrInvalidPayload = errors.New("invalid position payload")

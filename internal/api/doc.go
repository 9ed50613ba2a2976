// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package api serves the HTTP interface on a chi router.
//
// Routes:
//
//	GET  /api/v1/health/live      liveness probe
//	GET  /api/v1/health/ready     readiness with registry and stream status
//	GET  /api/v1/targets          targets, filtered by ?status= and ?class=
//	GET  /api/v1/targets/{key}    one target including its trail
//	GET  /api/v1/stream           websocket change stream
//	POST /api/v1/positions        position report ingest
//	GET  /metrics                 Prometheus metrics
//
// Every JSON response uses the models.APIResponse envelope. Rate limiting
// is go-chi/httprate keyed by client IP; CORS is go-chi/cors.
package api

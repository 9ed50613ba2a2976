// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package config loads and validates application configuration with koanf.
//
// Precedence is environment > config file > defaults. The config file is
// YAML, found via CONFIG_PATH or DefaultConfigPaths:
//
//	tracking:
//	  sweep_interval: 5s
//	  classes:
//	    B:
//	      lost_after: 12m
//	      remove_after: 20m
//	nats:
//	  enabled: true
//	  embedded:
//	    enabled: true
//	server:
//	  port: 3857
//
// Per-class thresholds can also be set from the environment:
//
//	TRACKING_CLASS_B_LOST_AFTER=12m
//	TRACKING_CLASS_ATON_CONFIRM_AFTER_MSGS=2
//
// Load fails when any threshold table or timing invariant is violated, so
// the process never starts with a configuration the tracker would reject.
package config

// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package config

import (
	"errors"
	"fmt"

	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/validation"
)

// Validate checks struct tag constraints and then the cross-field rules of
// each section.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	tc, err := c.Tracking.TrackingCore()
	if err != nil {
		return err
	}
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("tracking: %w", err)
	}

	if err := c.validateStream(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateStream() error {
	if c.Stream.BatchWindow < 0 {
		return errors.New("stream.batch_window must not be negative")
	}
	if c.Stream.ResyncInterval <= 0 {
		return errors.New("stream.resync_interval must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Timeout <= 0 {
		return errors.New("server.timeout must be positive")
	}
	if !c.Server.RateLimitDisabled && (c.Server.RateLimitReqs < 1 || c.Server.RateLimitWindow <= 0) {
		return errors.New("server rate limit needs rate_limit_reqs >= 1 and a positive rate_limit_window")
	}
	return nil
}

// ShouldWarnAboutCORS reports whether any origin is allowed.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

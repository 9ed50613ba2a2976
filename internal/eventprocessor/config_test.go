// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"errors"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Enabled {
		t.Error("NATS should be disabled by default")
	}
	if got := cfg.StatusSubject("lost"); got != "lookout.status.lost" {
		t.Errorf("StatusSubject(lost) = %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"enabled without url", func(c *Config) { c.Enabled = true; c.URL = "" }},
		{"whitespace subject", func(c *Config) { c.PositionSubject = "lookout positions" }},
		{"wildcard status prefix", func(c *Config) { c.StatusSubjectPrefix = "lookout.>" }},
		{"poison equals input", func(c *Config) { c.PoisonSubject = c.PositionSubject }},
		{"retry multiplier", func(c *Config) { c.Router.RetryMultiplier = 0.5 }},
		{"retry intervals", func(c *Config) { c.Router.RetryInitialInterval = 2 * c.Router.RetryMaxInterval }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_EmbeddedWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.URL = ""
	cfg.Embedded.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("embedded server should not need a url: %v", err)
	}
}

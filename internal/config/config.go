// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/lookout/internal/eventprocessor"
	"github.com/tomtom215/lookout/internal/logging"
	"github.com/tomtom215/lookout/internal/stream"
	"github.com/tomtom215/lookout/internal/tracking"
	"github.com/tomtom215/lookout/internal/websocket"
)

// Config is the complete application configuration.
type Config struct {
	Tracking   TrackingConfig        `koanf:"tracking"`
	Stream     StreamConfig          `koanf:"stream"`
	NATS       eventprocessor.Config `koanf:"nats"`
	Server     ServerConfig          `koanf:"server"`
	Logging    LoggingConfig         `koanf:"logging"`
	Supervisor SupervisorConfig      `koanf:"supervisor"`
}

// TrackingConfig holds the tracking core settings. Classes is keyed by the
// canonical class name (A, B, ATON, BASE, SAR, AIRCRAFT).
type TrackingConfig struct {
	Classes       map[string]tracking.Thresholds `koanf:"classes"`
	Debounce      time.Duration                  `koanf:"debounce"`
	SweepInterval time.Duration                  `koanf:"sweep_interval"`
	TrailCapacity int                            `koanf:"trail_capacity" validate:"min=1,max=10000"`
	DrainTimeout  time.Duration                  `koanf:"drain_timeout"`
}

// StreamConfig holds change stream and websocket settings.
type StreamConfig struct {
	BatchWindow      time.Duration `koanf:"batch_window"`
	MaxBatch         int           `koanf:"max_batch" validate:"min=1"`
	SubscriberBuffer int           `koanf:"subscriber_buffer" validate:"min=1"`

	// ResyncInterval and ResyncBurst rate limit client resync requests.
	ResyncInterval time.Duration `koanf:"resync_interval"`
	ResyncBurst    int           `koanf:"resync_burst" validate:"min=1"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout           time.Duration `koanf:"timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, error, fatal or disabled.
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller adds file:line to each entry.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig holds suture tree settings.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

func defaultConfig() *Config {
	tc := tracking.DefaultConfig()
	sc := stream.DefaultConfig()
	hc := websocket.DefaultHubConfig()

	classes := make(map[string]tracking.Thresholds, len(tc.Thresholds))
	for class, th := range tc.Thresholds {
		classes[string(class)] = th
	}

	return &Config{
		Tracking: TrackingConfig{
			Classes:       classes,
			Debounce:      tc.Debounce,
			SweepInterval: tc.SweepInterval,
			TrailCapacity: tc.TrailCapacity,
			DrainTimeout:  tc.DrainTimeout,
		},
		Stream: StreamConfig{
			BatchWindow:      sc.BatchWindow,
			MaxBatch:         sc.MaxBatch,
			SubscriberBuffer: sc.SubscriberBuffer,
			ResyncInterval:   hc.ResyncInterval,
			ResyncBurst:      hc.ResyncBurst,
		},
		NATS: eventprocessor.DefaultConfig(),
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3857,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5.0,
			FailureDecay:     30.0,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// TrackingCore converts the tracking section into the core's Config.
func (t *TrackingConfig) TrackingCore() (tracking.Config, error) {
	table := make(tracking.ThresholdTable, len(t.Classes))
	for name, th := range t.Classes {
		class, ok := tracking.ParseClass(name)
		if !ok {
			return tracking.Config{}, fmt.Errorf("tracking.classes: unknown class %q", name)
		}
		if name != string(class) {
			return tracking.Config{}, fmt.Errorf("tracking.classes: class %q must be written as %q", name, class)
		}
		table[class] = th
	}

	return tracking.Config{
		Thresholds:    table,
		Debounce:      t.Debounce,
		SweepInterval: t.SweepInterval,
		TrailCapacity: t.TrailCapacity,
		DrainTimeout:  t.DrainTimeout,
	}, nil
}

// StreamCore converts the stream section into the sequencer's Config.
func (s *StreamConfig) StreamCore() stream.Config {
	return stream.Config{
		BatchWindow:      s.BatchWindow,
		MaxBatch:         s.MaxBatch,
		SubscriberBuffer: s.SubscriberBuffer,
	}
}

// HubConfig converts the stream section into the websocket hub's config.
func (s *StreamConfig) HubConfig() websocket.HubConfig {
	return websocket.HubConfig{
		ResyncInterval: s.ResyncInterval,
		ResyncBurst:    s.ResyncBurst,
	}
}

// LoggingCore converts the logging section for logging.Init.
func (l *LoggingConfig) LoggingCore() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

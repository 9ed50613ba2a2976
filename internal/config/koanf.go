// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/lookout/internal/tracking"
)

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/lookout/config.yaml",
	"/etc/lookout/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from three layers, later ones winning:
//
//  1. built-in defaults
//  2. the optional YAML config file
//  3. environment variables (see envMappings and TRACKING_CLASS_*)
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Tracking core
	"tracking_debounce":       "tracking.debounce",
	"tracking_sweep_interval": "tracking.sweep_interval",
	"tracking_trail_capacity": "tracking.trail_capacity",
	"tracking_drain_timeout":  "tracking.drain_timeout",

	// Change stream
	"stream_batch_window":      "stream.batch_window",
	"stream_max_batch":         "stream.max_batch",
	"stream_subscriber_buffer": "stream.subscriber_buffer",
	"stream_resync_interval":   "stream.resync_interval",
	"stream_resync_burst":      "stream.resync_burst",

	// NATS
	"nats_enabled":               "nats.enabled",
	"nats_url":                   "nats.url",
	"nats_position_subject":      "nats.position_subject",
	"nats_status_subject_prefix": "nats.status_subject_prefix",
	"nats_poison_subject":        "nats.poison_subject",
	"nats_queue_group":           "nats.queue_group",
	"nats_subscribers":           "nats.subscribers",
	"nats_embedded":              "nats.embedded.enabled",
	"nats_embedded_host":         "nats.embedded.host",
	"nats_embedded_port":         "nats.embedded.port",
	"nats_store_dir":             "nats.embedded.store_dir",
	"nats_throttle_per_second":   "nats.router.throttle_per_second",

	// HTTP server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"server_timeout":      "server.timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_reqs":     "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"rate_limit_disabled": "server.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

var thresholdFields = []string{
	"confirm_after_msgs",
	"confirm_max_age",
	"lost_after",
	"remove_after",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unknown variables map to "" and are skipped.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - NATS_EMBEDDED -> nats.embedded.enabled
//   - TRACKING_CLASS_B_LOST_AFTER -> tracking.classes.B.lost_after
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	if rest, ok := strings.CutPrefix(key, "tracking_class_"); ok {
		return classThresholdPath(rest)
	}
	return ""
}

// classThresholdPath maps "<class>_<field>" to its koanf path.
func classThresholdPath(rest string) string {
	for _, class := range tracking.AllClasses {
		field, ok := strings.CutPrefix(rest, strings.ToLower(string(class))+"_")
		if !ok {
			continue
		}
		for _, f := range thresholdFields {
			if field == f {
				return "tracking.classes." + string(class) + "." + f
			}
		}
	}
	return ""
}

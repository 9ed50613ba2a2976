// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package eventprocessor

import (
	"fmt"
	"strings"
	"time"
)

// Config holds NATS ingest and egress settings.
type Config struct {
	// Enabled switches position ingest and status egress to NATS. When false
	// an in-process bus is used and status notifications are only logged.
	Enabled bool `koanf:"enabled"`

	// URL of the NATS server. Ignored when Embedded.Enabled is set.
	URL string `koanf:"url" validate:"omitempty,url"`

	// PositionSubject is the subject position reports are consumed from.
	PositionSubject string `koanf:"position_subject" validate:"required"`

	// StatusSubjectPrefix prefixes outbound notifications: <prefix>.<status>.
	StatusSubjectPrefix string `koanf:"status_subject_prefix" validate:"required"`

	// PoisonSubject receives messages whose handling failed after all retries.
	// Empty disables the poison queue.
	PoisonSubject string `koanf:"poison_subject"`

	// QueueGroup load-balances consumption across instances.
	QueueGroup string `koanf:"queue_group"`

	// SubscribersCount is the number of concurrent consumers. Values above 1
	// may reorder reports for the same target; stale ones are then discarded
	// by the processor.
	SubscribersCount int `koanf:"subscribers" validate:"min=1,max=64"`

	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`

	Embedded       EmbeddedConfig       `koanf:"embedded"`
	Router         RouterConfig         `koanf:"router"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// EmbeddedConfig configures the optional in-process NATS server.
type EmbeddedConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	// Port of the embedded server; -1 picks a random free port.
	Port int `koanf:"port" validate:"gte=-1,lte=65535"`
	// StoreDir enables JetStream file storage when set.
	StoreDir string `koanf:"store_dir"`
}

// RouterConfig holds middleware settings for the ingest router.
type RouterConfig struct {
	CloseTimeout time.Duration `koanf:"close_timeout"`

	RetryMaxRetries      int           `koanf:"retry_max_retries" validate:"min=0"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval"`
	RetryMultiplier      float64       `koanf:"retry_multiplier"`

	// ThrottlePerSecond caps handled messages per second; 0 disables.
	ThrottlePerSecond int64 `koanf:"throttle_per_second" validate:"min=0"`
}

// CircuitBreakerConfig holds circuit breaker settings for status egress.
type CircuitBreakerConfig struct {
	Name             string        `koanf:"name"`
	MaxRequests      uint32        `koanf:"max_requests"` // allowed in half-open state
	Interval         time.Duration `koanf:"interval"`     // reset interval for counts
	Timeout          time.Duration `koanf:"timeout"`      // time to stay open
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"min=1"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:             false,
		URL:                 "nats://127.0.0.1:4222",
		PositionSubject:     "lookout.positions",
		StatusSubjectPrefix: "lookout.status",
		PoisonSubject:       "lookout.dlq.positions",
		QueueGroup:          "lookout",
		SubscribersCount:    1,
		MaxReconnects:       -1,
		ReconnectWait:       2 * time.Second,
		Embedded: EmbeddedConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    4222,
		},
		Router:         DefaultRouterConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig("nats-status"),
	}
}

// DefaultRouterConfig returns production defaults for the ingest router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         10 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 100 * time.Millisecond,
		RetryMaxInterval:     5 * time.Second,
		RetryMultiplier:      2.0,
	}
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// StatusSubject returns the subject a notification for status is sent on.
func (c *Config) StatusSubject(status string) string {
	return c.StatusSubjectPrefix + "." + status
}

// Validate checks constraints struct tags cannot express.
func (c *Config) Validate() error {
	if c.Enabled && !c.Embedded.Enabled && c.URL == "" {
		return fmt.Errorf("%w: nats url is required unless the embedded server is enabled", ErrInvalidConfig)
	}
	if strings.ContainsAny(c.PositionSubject, " \t") {
		return fmt.Errorf("%w: position subject %q contains whitespace", ErrInvalidConfig, c.PositionSubject)
	}
	if strings.ContainsAny(c.StatusSubjectPrefix, "*> \t") {
		return fmt.Errorf("%w: status subject prefix %q must be a literal subject", ErrInvalidConfig, c.StatusSubjectPrefix)
	}
	if c.PoisonSubject != "" && c.PoisonSubject == c.PositionSubject {
		return fmt.Errorf("%w: poison subject must differ from position subject", ErrInvalidConfig)
	}
	if c.Router.RetryMultiplier < 1 {
		return fmt.Errorf("%w: retry multiplier must be >= 1", ErrInvalidConfig)
	}
	if c.Router.RetryInitialInterval > c.Router.RetryMaxInterval {
		return fmt.Errorf("%w: retry initial interval exceeds max interval", ErrInvalidConfig)
	}
	return nil
}

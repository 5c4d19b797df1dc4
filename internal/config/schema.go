// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles ptclient configuration loading, validation and
// change watching.
package config

import (
	"time"
)

// Config is the root configuration structure for ptclient.
type Config struct {
	API           APIConfig           `json:"api" yaml:"api"`
	Realtime      RealtimeConfig      `json:"realtime" yaml:"realtime"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Metrics       MetricsConfig       `json:"metrics" yaml:"metrics"`
}

// APIConfig configures the request gateway.
type APIConfig struct {
	BaseURL        string        `json:"base_url" yaml:"base_url"`
	RefreshPath    string        `json:"refresh_path" yaml:"refresh_path"`
	Timeout        string        `json:"timeout" yaml:"timeout"`
	RefreshTimeout string        `json:"refresh_timeout" yaml:"refresh_timeout"`
	Breaker        BreakerConfig `json:"breaker" yaml:"breaker"`
}

// BreakerConfig configures the optional circuit breaker. MaxFailures of 0
// disables it.
type BreakerConfig struct {
	MaxFailures uint32 `json:"max_failures" yaml:"max_failures"`
	Timeout     string `json:"timeout" yaml:"timeout"`
}

// RealtimeConfig configures the notification channel.
type RealtimeConfig struct {
	URL           string        `json:"url" yaml:"url"`
	IdentityParam string        `json:"identity_param" yaml:"identity_param"`
	AutoReconnect bool          `json:"auto_reconnect" yaml:"auto_reconnect"`
	Backoff       BackoffConfig `json:"backoff" yaml:"backoff"`
}

// BackoffConfig configures automatic reconnect delays.
type BackoffConfig struct {
	Initial    string  `json:"initial" yaml:"initial"`
	Max        string  `json:"max" yaml:"max"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Jitter     *bool   `json:"jitter" yaml:"jitter"`
}

// NotificationsConfig bounds the notification history.
type NotificationsConfig struct {
	HistoryMaxEvents int    `json:"history_max_events" yaml:"history_max_events"`
	HistoryMaxAge    string `json:"history_max_age" yaml:"history_max_age"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// MetricsConfig configures the metrics endpoint. An empty Listen disables
// it.
type MetricsConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// ParseDuration parses a duration string, returning a default if empty.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// TimeoutDuration returns the per-call timeout.
func (c *APIConfig) TimeoutDuration() time.Duration {
	return ParseDuration(c.Timeout, 30*time.Second)
}

// RefreshTimeoutDuration returns the refresh call timeout.
func (c *APIConfig) RefreshTimeoutDuration() time.Duration {
	return ParseDuration(c.RefreshTimeout, 10*time.Second)
}

// JitterEnabled reports whether backoff jitter is on. It defaults to true.
func (c *BackoffConfig) JitterEnabled() bool {
	return c.Jitter == nil || *c.Jitter
}

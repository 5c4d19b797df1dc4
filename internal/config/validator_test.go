// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		API: APIConfig{BaseURL: "https://pt.example.com/api"},
	}
	applyDefaults(cfg)
	return cfg
}

func TestValidator_Validate_ValidConfig(t *testing.T) {
	validator := NewValidator()
	assert.NoError(t, validator.Validate(validConfig()))

	cfg := validConfig()
	cfg.API.Breaker.MaxFailures = 3
	cfg.API.Breaker.Timeout = "1m"
	cfg.Metrics.Listen = "127.0.0.1:9102"
	cfg.Logging.Level = "off"
	assert.NoError(t, validator.Validate(cfg))
}

func TestValidator_Validate_Fields(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:        "missing base url",
			mutate:      func(c *Config) { c.API.BaseURL = "" },
			errContains: "api.base_url: is required",
		},
		{
			name:        "base url wrong scheme",
			mutate:      func(c *Config) { c.API.BaseURL = "ftp://pt.example.com" },
			errContains: "api.base_url: scheme must be one of: http, https",
		},
		{
			name:        "base url without host",
			mutate:      func(c *Config) { c.API.BaseURL = "http:///api" },
			errContains: "api.base_url: must include a host",
		},
		{
			name:        "relative refresh path",
			mutate:      func(c *Config) { c.API.RefreshPath = "auth/refresh" },
			errContains: "api.refresh_path",
		},
		{
			name:        "bad timeout",
			mutate:      func(c *Config) { c.API.Timeout = "soon" },
			errContains: "api.timeout: invalid duration format",
		},
		{
			name:        "zero refresh timeout",
			mutate:      func(c *Config) { c.API.RefreshTimeout = "0s" },
			errContains: "api.refresh_timeout: must be positive",
		},
		{
			name: "breaker without timeout",
			mutate: func(c *Config) {
				c.API.Breaker.MaxFailures = 2
				c.API.Breaker.Timeout = "-1s"
			},
			errContains: "api.breaker.timeout",
		},
		{
			name:        "realtime url wrong scheme",
			mutate:      func(c *Config) { c.Realtime.URL = "http://pt.example.com/ws" },
			errContains: "realtime.url: scheme must be one of: ws, wss",
		},
		{
			name:        "missing identity param",
			mutate:      func(c *Config) { c.Realtime.IdentityParam = "" },
			errContains: "realtime.identity_param: is required",
		},
		{
			name:        "multiplier below one",
			mutate:      func(c *Config) { c.Realtime.Backoff.Multiplier = 0.5 },
			errContains: "realtime.backoff.multiplier",
		},
		{
			name: "max below initial",
			mutate: func(c *Config) {
				c.Realtime.Backoff.Initial = "10s"
				c.Realtime.Backoff.Max = "5s"
			},
			errContains: "realtime.backoff.max: must not be less than",
		},
		{
			name:        "negative history",
			mutate:      func(c *Config) { c.Notifications.HistoryMaxEvents = -1 },
			errContains: "notifications.history_max_events",
		},
		{
			name:        "bad history age",
			mutate:      func(c *Config) { c.Notifications.HistoryMaxAge = "forever" },
			errContains: "notifications.history_max_age",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "verbose" },
			errContains: "logging.level: invalid level 'verbose'",
		},
		{
			name:        "invalid metrics address",
			mutate:      func(c *Config) { c.Metrics.Listen = "9102" },
			errContains: "metrics.listen: invalid address",
		},
	}

	validator := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validator.Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidator_Validate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.API.BaseURL = ""
	cfg.Realtime.IdentityParam = ""
	cfg.Logging.Level = "loud"

	err := NewValidator().Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors, 3)
	assert.Equal(t, "api.base_url", verr.Errors[0].Field)
}

func TestValidationError(t *testing.T) {
	errs := &ValidationError{}
	assert.True(t, errs.IsEmpty())

	errs.Add("a", "bad")
	errs.Add("b", "worse")
	assert.False(t, errs.IsEmpty())
	assert.Equal(t, "a: bad; b: worse", errs.Error())
}

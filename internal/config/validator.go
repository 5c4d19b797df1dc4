// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity. It expects defaults to have been
// applied.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateAPI(cfg, errs)
	v.validateRealtime(cfg, errs)
	v.validateNotifications(cfg, errs)
	v.validateLogging(cfg, errs)
	v.validateMetrics(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func (v *Validator) validateAPI(cfg *Config, errs *ValidationError) {
	validateURL(errs, "api.base_url", cfg.API.BaseURL, "http", "https")

	if !strings.HasPrefix(cfg.API.RefreshPath, "/") {
		errs.Add("api.refresh_path", "must start with '/'")
	}

	validateDuration(errs, "api.timeout", cfg.API.Timeout, true)
	validateDuration(errs, "api.refresh_timeout", cfg.API.RefreshTimeout, true)
	if cfg.API.Breaker.MaxFailures > 0 {
		validateDuration(errs, "api.breaker.timeout", cfg.API.Breaker.Timeout, true)
	}
}

func (v *Validator) validateRealtime(cfg *Config, errs *ValidationError) {
	validateURL(errs, "realtime.url", cfg.Realtime.URL, "ws", "wss")

	if cfg.Realtime.IdentityParam == "" {
		errs.Add("realtime.identity_param", "is required")
	}

	b := cfg.Realtime.Backoff
	validateDuration(errs, "realtime.backoff.initial", b.Initial, true)
	validateDuration(errs, "realtime.backoff.max", b.Max, false)
	if b.Multiplier < 1 {
		errs.Add("realtime.backoff.multiplier", "must be at least 1")
	}
	if ParseDuration(b.Max, 0) > 0 && ParseDuration(b.Max, 0) < ParseDuration(b.Initial, 0) {
		errs.Add("realtime.backoff.max", "must not be less than realtime.backoff.initial")
	}
}

func (v *Validator) validateNotifications(cfg *Config, errs *ValidationError) {
	if cfg.Notifications.HistoryMaxEvents < 0 {
		errs.Add("notifications.history_max_events", "must not be negative")
	}
	validateDuration(errs, "notifications.history_max_age", cfg.Notifications.HistoryMaxAge, false)
}

func (v *Validator) validateLogging(cfg *Config, errs *ValidationError) {
	if cfg.Logging.Level != "" {
		validLevels := map[string]bool{
			"trace": true,
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
			"off":   true,
		}
		if !validLevels[cfg.Logging.Level] {
			errs.Add("logging.level", fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, off", cfg.Logging.Level))
		}
	}
}

func (v *Validator) validateMetrics(cfg *Config, errs *ValidationError) {
	if cfg.Metrics.Listen == "" {
		return
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.Listen); err != nil {
		errs.Add("metrics.listen", fmt.Sprintf("invalid address: %s", err))
	}
}

func validateURL(errs *ValidationError, field, raw string, schemes ...string) {
	if raw == "" {
		errs.Add(field, "is required")
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		errs.Add(field, fmt.Sprintf("invalid URL: %s", err))
		return
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				errs.Add(field, "must include a host")
			}
			return
		}
	}
	errs.Add(field, fmt.Sprintf("scheme must be one of: %s", strings.Join(schemes, ", ")))
}

func validateDuration(errs *ValidationError, field, raw string, positive bool) {
	if raw == "" {
		return
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		errs.Add(field, fmt.Sprintf("invalid duration format: %s", err))
		return
	}
	if d < 0 || (positive && d == 0) {
		errs.Add(field, "must be positive")
	}
}

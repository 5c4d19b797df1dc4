// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvAPI = "PTCLIENT_API"
	EnvWS  = "PTCLIENT_WS"
)

// DefaultBaseURL is the API root used when none is configured.
const DefaultBaseURL = "http://localhost:8081/api"

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path. Files ending
// in .yaml or .yml are parsed as YAML; anything else as HJSON, which also
// accepts plain JSON.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		// Parse HJSON to intermediate map
		var raw map[string]interface{}
		if err := hjson.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse hjson: %w", err)
		}

		// Convert to JSON and unmarshal to struct (for type safety)
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("convert to json: %w", err)
		}
		if err := json.Unmarshal(jsonData, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with environment overrides and default
// values applied.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg
}

// FindConfig searches for a config file in the current directory.
func (l *Loader) FindConfig() (string, error) {
	candidates := []string{
		"ptclient.hjson",
		"ptclient.json",
		"ptclient.yaml",
		"ptclient.yml",
	}

	for _, name := range candidates {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for %s)", strings.Join(candidates, ", "))
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvAPI); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvWS); v != "" {
		cfg.Realtime.URL = v
	}
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// API defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	if cfg.API.RefreshPath == "" {
		cfg.API.RefreshPath = "/auth/refresh"
	}
	if cfg.API.Timeout == "" {
		cfg.API.Timeout = "30s"
	}
	if cfg.API.RefreshTimeout == "" {
		cfg.API.RefreshTimeout = "10s"
	}
	if cfg.API.Breaker.MaxFailures > 0 && cfg.API.Breaker.Timeout == "" {
		cfg.API.Breaker.Timeout = "30s"
	}

	// Realtime defaults
	if cfg.Realtime.URL == "" {
		cfg.Realtime.URL = RealtimeURLFor(cfg.API.BaseURL)
	}
	if cfg.Realtime.IdentityParam == "" {
		cfg.Realtime.IdentityParam = "user_id"
	}
	if cfg.Realtime.Backoff.Initial == "" {
		cfg.Realtime.Backoff.Initial = "1s"
	}
	if cfg.Realtime.Backoff.Max == "" {
		cfg.Realtime.Backoff.Max = "30s"
	}
	if cfg.Realtime.Backoff.Multiplier == 0 {
		cfg.Realtime.Backoff.Multiplier = 2
	}

	// Notification history defaults
	if cfg.Notifications.HistoryMaxEvents == 0 {
		cfg.Notifications.HistoryMaxEvents = 200
	}
	if cfg.Notifications.HistoryMaxAge == "" {
		cfg.Notifications.HistoryMaxAge = "1h"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// RealtimeURLFor derives the websocket endpoint from the API root:
// http://host/api becomes ws://host/api/ws.
func RealtimeURLFor(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_ValidConfig(t *testing.T) {
	configContent := `{
		api: {
			base_url: "https://pt.example.com/api"
			timeout: "15s"
			breaker: {
				max_failures: 5
			}
		}
		realtime: {
			url: "wss://pt.example.com/api/ws"
			auto_reconnect: true
		}
		logging: {
			level: "debug"
		}
	}`

	cfg := loadFromString(t, configContent)

	assert.Equal(t, "https://pt.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "15s", cfg.API.Timeout)
	assert.Equal(t, uint32(5), cfg.API.Breaker.MaxFailures)
	assert.Equal(t, "wss://pt.example.com/api/ws", cfg.Realtime.URL)
	assert.True(t, cfg.Realtime.AutoReconnect)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoader_Load_HJSONFeatures(t *testing.T) {
	// Comments, unquoted keys and values, trailing commas
	configContent := `{
		// This is a comment
		api: {
			base_url: "http://localhost:9000/api",
		}

		# Hash comment
		notifications: {
			history_max_events: 50,
			history_max_age: 10m
		}
	}`

	cfg := loadFromString(t, configContent)

	assert.Equal(t, "http://localhost:9000/api", cfg.API.BaseURL)
	assert.Equal(t, 50, cfg.Notifications.HistoryMaxEvents)
	assert.Equal(t, "10m", cfg.Notifications.HistoryMaxAge)
}

func TestLoader_Load_JSON(t *testing.T) {
	path := writeTestConfigNamed(t, "ptclient.json", `{"api": {"base_url": "http://a/api"}, "metrics": {"listen": ":9102"}}`)

	cfg, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "http://a/api", cfg.API.BaseURL)
	assert.Equal(t, ":9102", cfg.Metrics.Listen)
}

func TestLoader_Load_YAML(t *testing.T) {
	path := writeTestConfigNamed(t, "ptclient.yaml", `
api:
  base_url: http://yaml.example/api
  refresh_timeout: 5s
realtime:
  identity_param: uid
  backoff:
    initial: 500ms
    multiplier: 1.5
    jitter: false
`)

	cfg, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "http://yaml.example/api", cfg.API.BaseURL)
	assert.Equal(t, "5s", cfg.API.RefreshTimeout)
	assert.Equal(t, "uid", cfg.Realtime.IdentityParam)
	assert.Equal(t, "500ms", cfg.Realtime.Backoff.Initial)
	assert.Equal(t, 1.5, cfg.Realtime.Backoff.Multiplier)
	assert.False(t, cfg.Realtime.Backoff.JitterEnabled())
}

func TestLoader_Load_Errors(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "missing.hjson"))
	assert.ErrorContains(t, err, "read config")

	path := writeTestConfigNamed(t, "bad.hjson", `{ api: { base_url: `)
	_, err = loader.Load(context.Background(), path)
	assert.ErrorContains(t, err, "parse hjson")

	path = writeTestConfigNamed(t, "bad.yaml", "api: [unclosed")
	_, err = loader.Load(context.Background(), path)
	assert.ErrorContains(t, err, "parse yaml")
}

func TestLoader_LoadWithDefaults(t *testing.T) {
	t.Setenv(EnvAPI, "")
	t.Setenv(EnvWS, "")

	path := writeTestConfig(t, `{ api: { base_url: "https://pt.example.com/api/" } }`)
	cfg, err := NewLoader().LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://pt.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "/auth/refresh", cfg.API.RefreshPath)
	assert.Equal(t, 30*time.Second, cfg.API.TimeoutDuration())
	assert.Equal(t, 10*time.Second, cfg.API.RefreshTimeoutDuration())
	assert.Equal(t, "", cfg.API.Breaker.Timeout)
	assert.Equal(t, "wss://pt.example.com/api/ws", cfg.Realtime.URL)
	assert.Equal(t, "user_id", cfg.Realtime.IdentityParam)
	assert.False(t, cfg.Realtime.AutoReconnect)
	assert.Equal(t, "1s", cfg.Realtime.Backoff.Initial)
	assert.Equal(t, "30s", cfg.Realtime.Backoff.Max)
	assert.Equal(t, 2.0, cfg.Realtime.Backoff.Multiplier)
	assert.True(t, cfg.Realtime.Backoff.JitterEnabled())
	assert.Equal(t, 200, cfg.Notifications.HistoryMaxEvents)
	assert.Equal(t, "1h", cfg.Notifications.HistoryMaxAge)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "", cfg.Metrics.Listen)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv(EnvAPI, "http://env.example/api")
	t.Setenv(EnvWS, "ws://push.example/ws")

	path := writeTestConfig(t, `{ api: { base_url: "http://file.example/api" } }`)
	cfg, err := NewLoader().LoadWithDefaults(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://env.example/api", cfg.API.BaseURL)
	assert.Equal(t, "ws://push.example/ws", cfg.Realtime.URL)
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvAPI, "")
	t.Setenv(EnvWS, "")

	cfg := Default()
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, "ws://localhost:8081/api/ws", cfg.Realtime.URL)
	assert.NoError(t, NewValidator().Validate(cfg))
}

func TestRealtimeURLFor(t *testing.T) {
	assert.Equal(t, "ws://localhost:8081/api/ws", RealtimeURLFor("http://localhost:8081/api"))
	assert.Equal(t, "wss://pt.example.com/ws", RealtimeURLFor("https://pt.example.com/"))
}

func TestLoader_FindConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	loader := NewLoader()
	_, err := loader.FindConfig()
	assert.ErrorContains(t, err, "config file not found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ptclient.yaml"), []byte("api: {}"), 0644))
	path, err := loader.FindConfig()
	require.NoError(t, err)
	assert.Equal(t, "ptclient.yaml", filepath.Base(path))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ptclient.hjson"), []byte("{}"), 0644))
	path, err = loader.FindConfig()
	require.NoError(t, err)
	assert.Equal(t, "ptclient.hjson", filepath.Base(path))
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, ParseDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, ParseDuration("bogus", 5*time.Second))
	assert.Equal(t, 2*time.Minute, ParseDuration("2m", 5*time.Second))
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	path := writeTestConfig(t, content)
	loader := NewLoader()
	cfg, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	return cfg
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	return writeTestConfigNamed(t, "ptclient.hjson", content)
}

func writeTestConfigNamed(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

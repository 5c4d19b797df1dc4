// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app assembles the ptclient runtime: session, request gateway,
// listener registry and realtime channel, plus config reload and the
// metrics endpoint.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wingedpig/ptclient/internal/config"
	"github.com/wingedpig/ptclient/internal/events"
	"github.com/wingedpig/ptclient/internal/logging"
	"github.com/wingedpig/ptclient/internal/metrics"
	"github.com/wingedpig/ptclient/internal/notify"
	"github.com/wingedpig/ptclient/internal/transport"
	"github.com/wingedpig/ptclient/pkg/client"
)

// ErrLoggedOut is returned by Run when the session could not be refreshed.
var ErrLoggedOut = errors.New("logged out")

var errStopped = errors.New("stopped")

// Options holds configuration options for the app.
type Options struct {
	// Config is the loaded configuration, defaults applied.
	Config *config.Config

	// ConfigPath, if set, is watched and reloaded while Run is active.
	ConfigPath string

	// SessionID seeds the session cookie for a caller that logged in
	// elsewhere.
	SessionID string

	Logger zerolog.Logger

	// Registry receives the collectors. When nil no metrics are kept and
	// metrics.listen is ignored.
	Registry *prometheus.Registry

	// HTTPClient overrides the gateway's HTTP client.
	HTTPClient *http.Client
}

// App is the main application container.
type App struct {
	// lifeMu serializes channel replacement; mu guards the fields.
	lifeMu sync.Mutex
	mu     sync.RWMutex

	cfg        *config.Config
	configPath string
	logger     zerolog.Logger
	promReg    *prometheus.Registry
	metrics    *metrics.Metrics
	client     *client.Client
	registry   *events.Registry
	channel    *notify.Channel
	identity   string
	metricsAt  string

	loggedOut  chan struct{}
	logoutOnce sync.Once
	done       chan struct{}
	stopOnce   sync.Once
}

// New creates the gateway and listener registry. The realtime channel is
// created later by Connect, once the user's identity is known.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.NewValidator().Validate(opts.Config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{
		cfg:        opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		promReg:    opts.Registry,
		loggedOut:  make(chan struct{}),
		done:       make(chan struct{}),
	}

	if opts.Registry != nil {
		m, err := metrics.New(opts.Registry)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		a.metrics = m
	}

	cfg := opts.Config
	a.registry = events.NewRegistry(events.RegistryConfig{
		HistoryMaxEvents: cfg.Notifications.HistoryMaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Notifications.HistoryMaxAge, time.Hour),
	}, events.WithLogger(logging.Component(a.logger, "listeners")))

	clientOpts := []client.Option{
		client.WithLogger(logging.Component(a.logger, "gateway")),
		client.WithMetrics(a.metrics),
		client.WithRefreshPath(cfg.API.RefreshPath),
		client.WithTimeout(cfg.API.TimeoutDuration()),
		client.WithRefreshTimeout(cfg.API.RefreshTimeoutDuration()),
		client.WithLogoutHandler(a.handleLogout),
	}
	if cfg.API.Breaker.MaxFailures > 0 {
		clientOpts = append(clientOpts, client.WithCircuitBreaker(transport.BreakerConfig{
			MaxFailures: cfg.API.Breaker.MaxFailures,
			Timeout:     config.ParseDuration(cfg.API.Breaker.Timeout, 30*time.Second),
		}))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(opts.HTTPClient))
	}
	a.client = client.New(cfg.API.BaseURL, clientOpts...)

	if opts.SessionID != "" {
		if err := a.client.SetSessionCookie(opts.SessionID); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Client returns the request gateway.
func (a *App) Client() *client.Client {
	return a.client
}

// Registry returns the listener registry. Subscriptions survive channel
// replacement.
func (a *App) Registry() *events.Registry {
	return a.registry
}

// Channel returns the realtime channel, or nil before Connect.
func (a *App) Channel() *notify.Channel {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.channel
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// LoggedOut is closed when a session refresh fails.
func (a *App) LoggedOut() <-chan struct{} {
	return a.loggedOut
}

// MetricsAddr returns the address the metrics endpoint listens on, or ""
// when it is not running.
func (a *App) MetricsAddr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.metricsAt
}

// Connect resolves the user through GET /auth/me and opens the realtime
// channel for that identity. Calling it again returns the same user and
// keeps the existing channel.
func (a *App) Connect(ctx context.Context) (*client.User, error) {
	me, err := a.client.Auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if me == nil || me.ID == "" {
		return nil, errors.New("resolve identity: service returned no user")
	}

	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	select {
	case <-a.loggedOut:
		return nil, ErrLoggedOut
	default:
	}

	a.mu.RLock()
	current, identity := a.channel, a.identity
	a.mu.RUnlock()
	if current != nil && identity == me.ID {
		return me, nil
	}
	if err := a.replaceChannel(me.ID); err != nil {
		return nil, err
	}
	a.logger.Info().Str("user", me.Username).Msg("connected")
	return me, nil
}

// replaceChannel closes the current channel and opens one for identity
// with the current config. Callers hold lifeMu. The old channel is closed
// without holding mu so listeners may still read app state.
func (a *App) replaceChannel(identity string) error {
	a.mu.Lock()
	old := a.channel
	a.channel = nil
	a.identity = identity
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	ch, err := a.newChannelLocked()
	if err != nil {
		return err
	}
	a.channel = ch
	return nil
}

func (a *App) newChannelLocked() (*notify.Channel, error) {
	rt := a.cfg.Realtime
	return notify.New(notify.Config{
		URL:           rt.URL,
		IdentityParam: rt.IdentityParam,
		Identity:      a.identity,
		AutoReconnect: rt.AutoReconnect,
		Backoff: notify.Backoff{
			Initial:    config.ParseDuration(rt.Backoff.Initial, time.Second),
			Max:        config.ParseDuration(rt.Backoff.Max, 30*time.Second),
			Multiplier: rt.Backoff.Multiplier,
			Jitter:     rt.Backoff.JitterEnabled(),
		},
	}, a.registry,
		notify.WithLogger(logging.Component(a.logger, "realtime")),
		notify.WithMetrics(a.metrics),
		notify.WithCookieJar(a.client.CookieJar()),
	)
}

// Reconnect redials the realtime channel.
func (a *App) Reconnect() error {
	ch := a.Channel()
	if ch == nil {
		return errors.New("not connected")
	}
	return ch.Reconnect()
}

// handleLogout runs once per failed refresh. The channel is closed on a
// separate goroutine because the failing call may be running inside a
// listener.
func (a *App) handleLogout(err error) {
	a.logger.Warn().Err(err).Msg("session lost, logging out")
	a.logoutOnce.Do(func() {
		close(a.loggedOut)
	})
	go a.closeChannel()
}

func (a *App) closeChannel() {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	a.mu.Lock()
	ch := a.channel
	a.channel = nil
	a.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
}

// ApplyConfig switches to a reloaded configuration. A changed realtime
// section replaces the channel; gateway and logging settings take effect on
// restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	a.mu.Lock()
	old := a.cfg
	a.cfg = cfg
	connected := a.channel != nil
	identity := a.identity
	a.mu.Unlock()

	if old.API != cfg.API || old.Logging != cfg.Logging {
		a.logger.Warn().Msg("api or logging settings changed; restart to apply")
	}
	if !connected || !realtimeChanged(old.Realtime, cfg.Realtime) {
		return
	}

	a.logger.Info().Str("url", cfg.Realtime.URL).Msg("realtime settings changed, reconnecting")
	if err := a.replaceChannel(identity); err != nil {
		a.logger.Error().Err(err).Msg("cannot recreate realtime channel")
	}
}

func realtimeChanged(a, b config.RealtimeConfig) bool {
	return a.URL != b.URL ||
		a.IdentityParam != b.IdentityParam ||
		a.AutoReconnect != b.AutoReconnect ||
		a.Backoff.Initial != b.Backoff.Initial ||
		a.Backoff.Max != b.Backoff.Max ||
		a.Backoff.Multiplier != b.Backoff.Multiplier ||
		a.Backoff.JitterEnabled() != b.Backoff.JitterEnabled()
}

// Run serves the metrics endpoint and watches the config file until ctx
// is done, Stop is called, or the session is lost. It returns ErrLoggedOut
// in the last case. The channel and registry are closed on return.
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	// Acquire everything that can fail before any goroutine starts.
	var watcher *config.Watcher
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, 200*time.Millisecond,
			config.WithWatchLogger(logging.Component(a.logger, "config")))
		if err != nil {
			return err
		}
		watcher = w
	}

	var ln net.Listener
	if listen := a.Config().Metrics.Listen; listen != "" && a.promReg != nil {
		l, err := net.Listen("tcp", listen)
		if err != nil {
			if watcher != nil {
				watcher.Close()
			}
			return fmt.Errorf("metrics listener: %w", err)
		}
		ln = l
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-a.loggedOut:
			return ErrLoggedOut
		case <-a.done:
			return errStopped
		}
	})

	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx, a.ApplyConfig)
		})
	}

	if ln != nil {
		a.mu.Lock()
		a.metricsAt = ln.Addr().String()
		a.mu.Unlock()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			a.logger.Info().Str("addr", ln.Addr().String()).Msg("serving metrics")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	if errors.Is(err, errStopped) {
		return nil
	}
	return err
}

// Stop signals Run to return. Safe to call multiple times.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
}

// Shutdown closes the channel and the listener registry.
func (a *App) Shutdown() {
	a.closeChannel()
	a.registry.Close()

	a.mu.Lock()
	a.metricsAt = ""
	a.mu.Unlock()
}

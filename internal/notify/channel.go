// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package notify keeps the realtime websocket connection to the ptracker
// service and delivers its messages to the listener registry.
//
// Listeners run on the channel's reader goroutine. They may call Reconnect
// or Close; the new connection is dialed once the listener has returned.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wingedpig/ptclient/internal/events"
	"github.com/wingedpig/ptclient/internal/metrics"
	"github.com/wingedpig/ptclient/internal/transport"
)

// Errors returned by Channel.
var (
	ErrNoIdentity = errors.New("realtime identity is required")
	ErrNoURL      = errors.New("realtime URL is required")
	ErrClosed     = errors.New("realtime channel closed")
)

// DefaultIdentityParam is the query parameter carrying the user id.
const DefaultIdentityParam = "user_id"

// Config configures a Channel.
type Config struct {
	// URL is the websocket endpoint, e.g. "ws://localhost:8081/api/ws".
	URL string

	// IdentityParam names the query parameter that carries Identity.
	IdentityParam string

	// Identity is the authenticated user's id. It must be known before the
	// channel is created.
	Identity string

	// HandshakeTimeout bounds each dial. Default 10s.
	HandshakeTimeout time.Duration

	// PongWait is how long the connection may stay silent before it is
	// considered lost. Default 60s.
	PongWait time.Duration

	// PingInterval is how often a ping is sent. Default 30s; it must be
	// shorter than PongWait.
	PingInterval time.Duration

	// AutoReconnect redials with Backoff after an unexpected loss. Off by
	// default; callers drive recovery through Reconnect.
	AutoReconnect bool
	Backoff       Backoff
}

func (c *Config) applyDefaults() {
	if c.IdentityParam == "" {
		c.IdentityParam = DefaultIdentityParam
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait / 2
	}
	d := DefaultBackoff()
	if c.Backoff == (Backoff{}) {
		c.Backoff = d
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff.Initial = d.Initial
	}
	if c.Backoff.Max <= 0 {
		c.Backoff.Max = d.Max
	}
	if c.Backoff.Max < c.Backoff.Initial {
		c.Backoff.Max = c.Backoff.Initial
	}
	if c.Backoff.Multiplier < 1 {
		c.Backoff.Multiplier = d.Multiplier
	}
}

// Option configures a Channel.
type Option func(*Channel)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// WithMetrics records dials, connection state and messages.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Channel) {
		c.metrics = m
	}
}

// WithCookieJar sends the session cookies on every dial.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Channel) {
		c.jar = jar
	}
}

// Channel is the realtime notification channel. It is safe for concurrent
// use.
type Channel struct {
	cfg      Config
	address  string
	registry *events.Registry
	dialer   *transport.Dialer
	jar      http.CookieJar
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	// dispatching counts listeners running on the reader goroutine.
	dispatching atomic.Int32

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	epoch    uint64
	cancel   context.CancelFunc
	finished chan struct{}
	closed   bool

	done chan struct{}
}

// New creates a channel and starts connecting. It fails without an
// identity, so no connection is attempted before the user is known.
func New(cfg Config, registry *events.Registry, opts ...Option) (*Channel, error) {
	if cfg.URL == "" {
		return nil, ErrNoURL
	}
	if cfg.Identity == "" {
		return nil, ErrNoIdentity
	}
	if registry == nil {
		return nil, errors.New("listener registry is required")
	}
	cfg.applyDefaults()

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime URL: %w", err)
	}
	q := u.Query()
	q.Set(cfg.IdentityParam, cfg.Identity)
	u.RawQuery = q.Encode()

	c := &Channel{
		cfg:      cfg,
		address:  u.String(),
		registry: registry,
		logger:   zerolog.Nop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dialer = transport.NewDialer(c.jar, cfg.HandshakeTimeout)

	c.mu.Lock()
	c.startLocked(nil)
	c.mu.Unlock()

	return c, nil
}

// State returns the current state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the channel is connected.
func (c *Channel) IsConnected() bool {
	return c.State() == StateConnected
}

// Address returns the URL the channel dials, including the identity.
func (c *Channel) Address() string {
	return c.address
}

// Done is closed when the channel has been closed.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Subscribe registers a listener on the channel's registry.
func (c *Channel) Subscribe(pattern string, handler events.Handler) (events.SubscriptionID, error) {
	return c.registry.Subscribe(pattern, handler)
}

// Unsubscribe removes a listener.
func (c *Channel) Unsubscribe(id events.SubscriptionID) error {
	return c.registry.Unsubscribe(id)
}

// Reconnect tears down the current connection or dial and dials again once
// the old reader has stopped delivering. It returns without waiting for
// the dial and may be called in any state except after Close, including
// from a listener.
func (c *Channel) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	prev := c.teardownLocked()
	c.startLocked(prev)
	return nil
}

// Close releases the connection, including one that is still dialing, and
// waits for the reader to stop. Called while a listener is running, Close
// returns at once and Done is closed when the reader has stopped. Close is
// idempotent.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	finished := c.teardownLocked()
	c.mu.Unlock()

	if c.dispatching.Load() > 0 {
		go c.finishClose(finished)
		return nil
	}
	c.finishClose(finished)
	return nil
}

func (c *Channel) finishClose(finished chan struct{}) {
	<-finished

	c.mu.Lock()
	c.state = StateDisconnected
	c.metrics.Connected(false)
	c.mu.Unlock()
	close(c.done)
}

// startLocked begins a new connection epoch. Its goroutine waits for prev,
// the previous epoch's reader, before dialing.
func (c *Channel) startLocked(prev chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	c.epoch++
	c.cancel = cancel
	c.finished = make(chan struct{})
	c.state = StateConnecting
	go c.run(ctx, c.epoch, prev, c.finished)
}

// teardownLocked stops the current epoch and returns a channel closed once
// its goroutine has exited.
func (c *Channel) teardownLocked() chan struct{} {
	c.epoch++
	c.state = StateClosing
	c.cancel()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.metrics.Connected(false)
	}
	return c.finished
}

// currentLocked reports whether epoch is still the live one.
func (c *Channel) currentLocked(epoch uint64) bool {
	return !c.closed && c.epoch == epoch
}

func (c *Channel) setState(epoch uint64, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(epoch) {
		return false
	}
	c.state = s
	return true
}

func (c *Channel) attach(epoch uint64, conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(epoch) {
		return false
	}
	c.conn = conn
	c.state = StateConnected
	c.metrics.Connected(true)
	return true
}

func (c *Channel) detach(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.currentLocked(epoch) {
		return false
	}
	c.conn = nil
	c.state = StateDisconnected
	c.metrics.Connected(false)
	return true
}

// run dials and reads for one epoch, redialing with backoff when
// AutoReconnect is set.
func (c *Channel) run(ctx context.Context, epoch uint64, prev, finished chan struct{}) {
	defer close(finished)

	if prev != nil {
		<-prev
		if ctx.Err() != nil {
			return
		}
	}

	attempt := 0
	for {
		conn, err := c.dialer.Dial(ctx, c.address)
		c.metrics.Dial(err == nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn().Err(err).Msg("realtime dial failed")
			if !c.setState(epoch, StateDisconnected) {
				return
			}
		} else {
			if !c.attach(epoch, conn) {
				conn.Close()
				return
			}
			attempt = 0
			c.logger.Info().Str("url", c.cfg.URL).Msg("realtime connection established")

			err = c.read(ctx, conn)
			conn.Close()
			if !c.detach(epoch) {
				return
			}
			c.logger.Warn().Err(err).Msg("realtime connection lost")
		}

		if !c.cfg.AutoReconnect {
			return
		}
		attempt++
		delay := NextBackoffDelay(c.cfg.Backoff, attempt)
		c.logger.Debug().Int("attempt", attempt).Dur("delay", delay).Msg("realtime reconnect scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
		if !c.setState(epoch, StateConnecting) {
			return
		}
	}
}

// read delivers messages from conn until it fails or ctx is cancelled.
func (c *Channel) read(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.ping(conn, pingDone)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		n, err := ParseMessage(data)
		if err != nil {
			c.metrics.Message(false)
			c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("dropped realtime message")
			continue
		}
		c.metrics.Message(true)
		c.dispatching.Add(1)
		err = c.registry.DispatchAll(ctx, n)
		c.dispatching.Add(-1)
		if err != nil {
			c.logger.Debug().Err(err).Str("kind", n.Kind).Msg("notification not dispatched")
		}
	}
}

func (c *Channel) ping(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

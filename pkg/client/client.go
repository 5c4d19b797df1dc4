// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client is the request gateway for the ptracker API.
//
// Every call goes through one gateway that carries the session cookies,
// validates the response envelope, and recovers from an expired session by
// refreshing it once and replaying the original request.
//
// # Getting Started
//
// Create a client pointing to the API root:
//
//	c := client.New("http://localhost:8081/api")
//
// Resources are reached through sub-clients:
//
//	me, err := c.Auth.Me(ctx)
//
//	projects, err := c.Projects.List(ctx, 1, 20)
//
//	task, err := c.Tasks.Get(ctx, projectID, taskID)
//
// Calls that have no typed wrapper go through [Call]:
//
//	out, err := client.Call[MyType](ctx, c, client.Get("/custom"))
//
// # Session Expiry
//
// When the service answers 401, the client performs one POST to the refresh
// endpoint and replays the request once. Concurrent callers that hit an
// expired session share a single refresh. If the refresh fails every
// affected caller gets [ErrUnauthenticated] and the handler installed with
// [WithLogoutHandler] runs once.
//
// # Error Handling
//
// Errors are one of [*TransportError], [*ProtocolError], [*APIError] or
// [ErrUnauthenticated]:
//
//	_, err := c.Projects.Get(ctx, "unknown")
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) {
//	    fmt.Printf("API error: %s - %s\n", apiErr.Code, apiErr.Message)
//	}
package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wingedpig/ptclient/internal/metrics"
	"github.com/wingedpig/ptclient/internal/session"
	"github.com/wingedpig/ptclient/internal/transport"
)

// Defaults.
const (
	DefaultRefreshPath    = "/auth/refresh"
	DefaultTimeout        = 30 * time.Second
	DefaultRefreshTimeout = 10 * time.Second
)

// SessionCookieName is the cookie the service keeps the session id in.
const SessionCookieName = "session_id"

// Client is a ptracker API client.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL        string
	refreshPath    string
	timeout        time.Duration
	refreshTimeout time.Duration

	httpClient *http.Client
	breaker    transport.BreakerConfig
	transport  *transport.HTTP

	session  *session.State
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	onLogout func(error)

	// Auth provides session operations.
	Auth *AuthClient

	// Projects provides access to projects the caller owns or belongs to.
	Projects *ProjectClient

	// Tasks provides access to tasks and their comments.
	Tasks *TaskClient

	// Public provides access to the public project catalogue.
	Public *PublicClient

	// Dashboard provides the caller's recent projects and tasks.
	Dashboard *DashboardClient
}

// Option configures a [Client].
type Option func(*Client)

// New creates a new client with the given API root and options.
//
// Any trailing slash is removed from baseURL. By default the client uses a
// fresh session state, a 30-second call timeout and a 10-second refresh
// timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		refreshPath:    DefaultRefreshPath,
		timeout:        DefaultTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.session == nil {
		c.session = session.New(false)
	}
	// Call timeouts come from the context, so the default client has none.
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	c.transport = transport.NewHTTP(transport.WithHTTPClient(hc), transport.WithBreaker(c.breaker))

	c.Auth = &AuthClient{c: c}
	c.Projects = &ProjectClient{c: c}
	c.Tasks = &TaskClient{c: c}
	c.Public = &PublicClient{c: c}
	c.Dashboard = &DashboardClient{c: c}

	return c
}

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached if the
// client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request, including the replay after a refresh.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRefreshTimeout bounds the refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithRefreshPath changes the refresh endpoint below the base URL.
func WithRefreshPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.refreshPath = p
		}
	}
}

// WithSession shares a session state between clients.
func WithSession(s *session.State) Option {
	return func(c *Client) {
		c.session = s
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics records call and refresh outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogoutHandler installs the logged-out signal. fn runs once per failed
// refresh, on the goroutine that performed the refresh, with the refresh
// error.
func WithLogoutHandler(fn func(error)) Option {
	return func(c *Client) {
		c.onLogout = fn
	}
}

// WithCircuitBreaker fails calls fast after repeated transport failures.
func WithCircuitBreaker(cfg transport.BreakerConfig) Option {
	return func(c *Client) {
		c.breaker = cfg
	}
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the session state the client coordinates refreshes on.
func (c *Client) Session() *session.State {
	return c.session
}

// CookieJar returns the jar holding the session cookies, for sharing with
// the realtime channel.
func (c *Client) CookieJar() http.CookieJar {
	return c.transport.Jar()
}

// SetSessionCookie seeds the jar with an existing session id, for callers
// that authenticated outside this client.
func (c *Client) SetSessionCookie(value string) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	c.transport.Jar().SetCookies(u, []*http.Cookie{{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
	}})
	return nil
}

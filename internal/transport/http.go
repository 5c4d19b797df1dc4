// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transport performs single HTTP requests and single websocket dials
// against the ptracker service. It has no retry or session logic; any error
// it returns means no usable response reached the caller.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a request
// without sending it.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Request is a single outbound HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// BreakerConfig configures the optional circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive transport failures before
	// the circuit opens. Zero disables the breaker.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a probe is allowed.
	Timeout time.Duration
}

// HTTP sends requests with a shared cookie jar so session cookies set by the
// service are replayed on every later request and websocket dial.
type HTTP struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Response]
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying http.Client. If the client has no
// cookie jar one is attached.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(t *HTTP) {
		t.client = hc
	}
}

// WithBreaker puts a circuit breaker in front of the transport.
func WithBreaker(cfg BreakerConfig) HTTPOption {
	return func(t *HTTP) {
		if cfg.MaxFailures == 0 {
			return
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		max := cfg.MaxFailures
		t.breaker = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:        "ptclient-http",
			MaxRequests: 1,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= max
			},
		})
	}
}

// NewHTTP creates an HTTP transport with a fresh cookie jar.
func NewHTTP(opts ...HTTPOption) *HTTP {
	t := &HTTP{
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client.Jar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList.
		jar, _ := cookiejar.New(nil)
		t.client.Jar = jar
	}
	return t
}

// Jar returns the cookie jar shared with websocket dials.
func (t *HTTP) Jar() http.CookieJar {
	return t.client.Jar
}

// Do performs one request and reads the whole response body. A non-2xx
// status is not an error at this layer.
func (t *HTTP) Do(ctx context.Context, req Request) (*Response, error) {
	if t.breaker == nil {
		return t.do(ctx, req)
	}
	resp, err := t.breaker.Execute(func() (*Response, error) {
		return t.do(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, ErrCircuitOpen)
	}
	return resp, err
}

func (t *HTTP) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

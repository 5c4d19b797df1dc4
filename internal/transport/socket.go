// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Dialer opens single websocket connections carrying the session cookies.
type Dialer struct {
	dialer websocket.Dialer
}

// NewDialer creates a websocket dialer that sends cookies from jar.
// A nil jar dials without credentials.
func NewDialer(jar http.CookieJar, handshakeTimeout time.Duration) *Dialer {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	return &Dialer{
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Jar:              jar,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// Dial opens one connection to url. Dial returns as soon as ctx is done,
// even mid-handshake; a connection that completes afterwards is closed.
func (d *Dialer) Dial(ctx context.Context, url string) (*websocket.Conn, error) {
	type dialResult struct {
		conn *websocket.Conn
		resp *http.Response
		err  error
	}

	ch := make(chan dialResult, 1)
	go func() {
		conn, resp, err := d.dialer.DialContext(ctx, url, nil)
		ch <- dialResult{conn: conn, resp: resp, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if r.resp != nil {
				return nil, fmt.Errorf("ws dial failed with status %d: %w", r.resp.StatusCode, r.err)
			}
			return nil, fmt.Errorf("ws dial failed: %w", r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("ws dial abandoned: %w", ctx.Err())
	}
}

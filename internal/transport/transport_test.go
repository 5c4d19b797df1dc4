// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTP_Do(t *testing.T) {
	var gotMethod, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"status":"error"}`))
	}))
	defer server.Close()

	tr := NewHTTP()
	resp, err := tr.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/projects",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"name":"x"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, resp.StatusCode, "non-2xx is not a transport error")
	assert.Equal(t, `{"status":"error"}`, string(resp.Body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"name":"x"}`, gotBody)
}

func TestHTTP_Do_CookiesReplayed(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		if c, err := r.Cookie("session"); err == nil {
			seen = c.Value
		}
	}))
	defer server.Close()

	tr := NewHTTP()
	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/login"})
	require.NoError(t, err)
	_, err = tr.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/me"})
	require.NoError(t, err)

	assert.Equal(t, "abc", seen)
}

func TestHTTP_Do_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := NewHTTP()
	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: url})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request failed")
}

func TestHTTP_Do_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	tr := NewHTTP(WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL})
	require.Error(t, err)
	assert.NotNil(t, tr.Jar(), "jar attached to custom client")
}

func TestHTTP_Breaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := NewHTTP(WithBreaker(BreakerConfig{MaxFailures: 2, Timeout: time.Minute}))
	for i := 0; i < 2; i++ {
		_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: url})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: url})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestDialer_Dial(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "tok", Path: "/"})
			return
		}
		if c, err := r.Cookie("session"); err == nil {
			cookie = c.Value
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
	}))
	defer server.Close()

	tr := NewHTTP()
	_, err := tr.Do(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/login"})
	require.NoError(t, err)

	d := NewDialer(tr.Jar(), time.Second)
	conn, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http")+"/ws")
	require.NoError(t, err)
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))
	assert.Equal(t, "tok", cookie)
}

func TestDialer_Dial_BadHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	d := NewDialer(nil, time.Second)
	_, err := d.Dial(context.Background(), "ws"+strings.TrimPrefix(server.URL, "http"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestDialer_Dial_CancelledMidHandshake(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	}))
	defer server.Close()
	defer close(release)

	d := NewDialer(nil, 30*time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := d.Dial(ctx, "ws"+strings.TrimPrefix(server.URL, "http"))
		errCh <- err
	}()

	<-entered
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Dial did not return after cancel")
	}
}

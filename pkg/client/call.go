// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wingedpig/ptclient/internal/metrics"
	"github.com/wingedpig/ptclient/internal/session"
	"github.com/wingedpig/ptclient/internal/transport"
)

// Envelope statuses.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the standard API response envelope.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *envelopeError  `json:"error"`
}

type envelopeError struct {
	Code    string                 `json:"code"`
	ID      string                 `json:"id"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// result is a validated success envelope.
type result struct {
	status int
	data   json.RawMessage
}

// Call issues req and decodes the envelope data into T. It returns
// (nil, nil) when the service sends no data.
func Call[T any](ctx context.Context, c *Client, req Request) (*T, error) {
	res, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.data == nil {
		return nil, nil
	}

	var v T
	if err := json.Unmarshal(res.data, &v); err != nil {
		return nil, &ProtocolError{StatusCode: res.status, Reason: "failed to decode data", Err: err}
	}
	return &v, nil
}

// CallMapped issues req, decodes the envelope data into the wire type A and
// converts it with mapper.
func CallMapped[A, D any](ctx context.Context, c *Client, req Request, mapper func(A) D) (*D, error) {
	wire, err := Call[A](ctx, c, req)
	if err != nil || wire == nil {
		return nil, err
	}
	d := mapper(*wire)
	return &d, nil
}

// Do issues req and returns the raw envelope data, which is nil when the
// service sent none.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	res, err := c.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	return res.data, nil
}

// exchange sends req, and on an expired session refreshes once and replays
// it. It is the only place that retries.
func (c *Client) exchange(ctx context.Context, req Request) (*result, error) {
	method := req.method()

	var body []byte
	if method != MethodGet && req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = data
	}

	seen := c.session.Generation()
	res, err := c.send(ctx, method, req.Endpoint, body)
	if err == nil {
		c.session.SetAuthenticated(true)
		c.metrics.Call(string(method), metrics.OutcomeSuccess)
		return res, nil
	}
	if !isUnauthorized(err) {
		c.metrics.Call(string(method), outcome(err))
		return nil, err
	}

	if err := c.recoverSession(ctx, seen); err != nil {
		c.metrics.Call(string(method), outcome(err))
		return nil, err
	}

	res, err = c.send(ctx, method, req.Endpoint, body)
	if err != nil {
		if isUnauthorized(err) {
			c.session.SetAuthenticated(false)
			err = fmt.Errorf("%w: %s %s rejected after session refresh", ErrUnauthenticated, method, req.Endpoint)
		}
		c.metrics.Call(string(method), outcome(err))
		return nil, err
	}
	c.session.SetAuthenticated(true)
	c.metrics.Call(string(method), metrics.OutcomeSuccess)
	return res, nil
}

// recoverSession waits for, or performs, the refresh that answers a 401
// observed by a request sent at generation seen.
func (c *Client) recoverSession(ctx context.Context, seen uint64) error {
	for {
		t := c.session.Join(seen)
		switch t.Turn {
		case session.TurnSettled:
			if !t.OK {
				return fmt.Errorf("%w: session refresh failed", ErrUnauthenticated)
			}
			return nil

		case session.TurnWait:
			select {
			case <-t.Done:
			case <-ctx.Done():
				return &TransportError{Op: "await refresh", Err: ctx.Err()}
			}

		case session.TurnRefresh:
			err := c.refresh(ctx)
			c.session.EndRefresh(err == nil)
			c.metrics.Refresh(err == nil)
			if err != nil {
				c.logger.Warn().Err(err).Msg("session refresh failed")
				if c.onLogout != nil {
					c.onLogout(err)
				}
				return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
			}
			c.logger.Debug().Uint64("generation", t.Generation).Msg("session refreshed")
			return nil
		}
	}
}

// refresh performs the refresh call. It is detached from the caller's
// cancellation because other callers wait on its outcome.
func (c *Client) refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	resp, err := c.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + c.refreshPath,
	})
	if err != nil {
		return &TransportError{Op: "refresh", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}
	return nil
}

// send performs one request and validates the envelope.
func (c *Client) send(ctx context.Context, method Method, endpoint string, body []byte) (*result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	header := http.Header{}
	header.Set("Accept", "application/json")
	if body != nil {
		header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.transport.Do(ctx, transport.Request{
		Method: string(method),
		URL:    c.baseURL + endpoint,
		Header: header,
		Body:   body,
	})
	if err != nil {
		c.logger.Debug().Err(err).Str("method", string(method)).Str("endpoint", endpoint).Msg("request failed")
		return nil, &TransportError{Op: fmt.Sprintf("%s %s", method, endpoint), Err: err}
	}

	c.logger.Debug().
		Str("method", string(method)).
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api call")

	return parseResponse(resp.StatusCode, resp.Body)
}

// parseResponse checks that the HTTP status and the envelope status agree
// and extracts data or the application error.
func parseResponse(status int, body []byte) (*result, error) {
	ok := status >= 200 && status <= 299

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status == http.StatusUnauthorized {
			return nil, unauthorized()
		}
		return nil, &ProtocolError{StatusCode: status, Reason: "undecodable body", Err: err}
	}

	switch {
	case ok && env.Status == statusSuccess:
		if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
			return &result{status: status}, nil
		}
		return &result{status: status, data: env.Data}, nil

	case ok:
		return nil, &ProtocolError{StatusCode: status, Reason: fmt.Sprintf("envelope status %q on a success response", env.Status)}

	case env.Status == statusError:
		apiErr := &APIError{Status: status, Message: http.StatusText(status)}
		if e := env.Error; e != nil {
			apiErr.Code = e.Code
			if apiErr.Code == "" {
				apiErr.Code = e.ID
			}
			if e.Message != "" {
				apiErr.Message = e.Message
			}
			apiErr.Details = e.Details
		}
		return nil, apiErr

	case status == http.StatusUnauthorized && env.Status != statusSuccess:
		return nil, unauthorized()

	default:
		return nil, &ProtocolError{StatusCode: status, Reason: fmt.Sprintf("envelope status %q on an error response", env.Status)}
	}
}

func unauthorized() *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "unauthorized",
		Message: http.StatusText(http.StatusUnauthorized),
	}
}

func outcome(err error) string {
	var (
		apiErr   *APIError
		protoErr *ProtocolError
		tErr     *TransportError
	)
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return metrics.OutcomeUnauthenticated
	case errors.As(err, &tErr):
		return metrics.OutcomeTransportError
	case errors.As(err, &protoErr):
		return metrics.OutcomeProtocolError
	case errors.As(err, &apiErr):
		return metrics.OutcomeAPIError
	default:
		return metrics.OutcomeTransportError
	}
}

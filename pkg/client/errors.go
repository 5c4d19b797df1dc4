// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthenticated is returned when the session is expired and could not
// be refreshed, or when a request is still rejected after one refresh.
// Consumers are expected to send the user to the login surface.
var ErrUnauthenticated = errors.New("unauthenticated")

// APIError represents an error reported by the ptracker service in the
// response envelope.
//
// API errors include a machine-readable Code and a human-readable Message.
//
// Common error codes include:
//   - "unauthorized": The session is missing or expired
//   - "invalid_query", "invalid_body": The request was malformed
//   - "access_denied": The caller may not perform the operation
//   - "resource_not_found": The requested resource does not exist
//   - "server_error": An unexpected server error occurred
type APIError struct {
	// Status is the HTTP status code of the response.
	Status int `json:"-"`

	// Code is a machine-readable error code (e.g., "resource_not_found").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details contains additional error information, if available.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// TransportError means no response reached the client: the connection
// failed, the request timed out, or the circuit breaker rejected it.
// Transport errors are never retried by the client.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError means a response arrived but the envelope was malformed, or
// the HTTP status and the envelope status disagree.
type ProtocolError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("protocol error (status %d): %s", e.StatusCode, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a consumer should offer the user a retry.
// Everything except an authentication failure is recoverable from the
// user's point of view.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrUnauthenticated)
}

// isUnauthorized reports whether err is the service rejecting the session.
func isUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

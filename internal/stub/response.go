// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stub

import (
	"encoding/json"
	"net/http"
)

// Response is the ptracker response envelope.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details. The service reports the error code in
// the id field.
type ErrorInfo struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Error ids used by the service.
const (
	ErrUnauthorized     = "unauthorized"
	ErrInvalidQuery     = "invalid_query"
	ErrInvalidBody      = "invalid_body"
	ErrAccessDenied     = "access_denied"
	ErrResourceNotFound = "resource_not_found"
	ErrRateLimited      = "rate_limited"
	ErrServerError      = "server_error"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WriteJSON writes a success envelope. A nil data omits the data field.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, id, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Status: StatusError,
		Error: &ErrorInfo{
			ID:      id,
			Message: message,
		},
	})
}

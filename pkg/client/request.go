// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "net/http"

// Method is an HTTP method supported by the service.
type Method string

// Supported methods.
const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
)

// Request describes one call to the service. A Request is immutable once
// issued; a replay after a session refresh sends the same method, endpoint
// and body.
type Request struct {
	// Endpoint is the path below the base URL, e.g. "/projects".
	Endpoint string

	// Method defaults to GET when empty.
	Method Method

	// Body is marshaled to JSON. It is ignored for GET.
	Body interface{}
}

// Get builds a GET request.
func Get(endpoint string) Request {
	return Request{Endpoint: endpoint, Method: MethodGet}
}

// Post builds a POST request. body may be nil.
func Post(endpoint string, body interface{}) Request {
	return Request{Endpoint: endpoint, Method: MethodPost, Body: body}
}

// Put builds a PUT request.
func Put(endpoint string, body interface{}) Request {
	return Request{Endpoint: endpoint, Method: MethodPut, Body: body}
}

// Delete builds a DELETE request.
func Delete(endpoint string) Request {
	return Request{Endpoint: endpoint, Method: MethodDelete}
}

func (r Request) method() Method {
	if r.Method == "" {
		return MethodGet
	}
	return r.Method
}

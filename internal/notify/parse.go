// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wingedpig/ptclient/internal/events"
)

// ParseError describes an inbound message that could not be turned into a
// notification. The channel logs and drops such messages.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed realtime message: %s: %v", e.Reason, e.Err)
	}
	return "malformed realtime message: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseMessage decodes one {"type", "data"} frame. data must be a JSON
// object or absent.
func ParseMessage(raw []byte) (events.Notification, error) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return events.Notification{}, &ParseError{Reason: "invalid JSON", Err: err}
	}
	if msg.Type == "" {
		return events.Notification{}, &ParseError{Reason: "missing type"}
	}

	n := events.Notification{Kind: msg.Type}
	if len(msg.Data) == 0 || bytes.Equal(msg.Data, []byte("null")) {
		return n, nil
	}
	if err := json.Unmarshal(msg.Data, &n.Payload); err != nil {
		return events.Notification{}, &ParseError{Reason: "data is not an object", Err: err}
	}
	return n, nil
}

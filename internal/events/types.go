// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events is the listener registry for realtime notifications.
package events

import (
	"context"
	"time"
)

// Notification is one parsed realtime message. Listeners receive it by
// value and copy what they need; nothing retains it after dispatch except
// the history.
type Notification struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"type"`
	Payload    map[string]interface{} `json:"data"`
	ReceivedAt time.Time              `json:"received_at"`
}

// String returns the payload field key as a string, or "" if it is absent
// or not a string.
func (n Notification) String(key string) string {
	if n.Payload == nil {
		return ""
	}
	s, _ := n.Payload[key].(string)
	return s
}

// Handler processes a dispatched notification.
type Handler func(ctx context.Context, n Notification) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// Filter for querying notification history.
type Filter struct {
	Kinds []string  // Kinds to match (supports wildcards)
	Since time.Time // Notifications received after this time
	Until time.Time // Notifications received before this time
	Limit int       // Maximum notifications to return
}

// Notification kinds pushed by the ptracker service. Unknown kinds are still
// delivered.
const (
	KindJoinAccepted    = "join_accepted"
	KindJoinRejected    = "join_rejected"
	KindTaskUpdated     = "task_updated"
	KindAssigneeAdded   = "assignee_added"
	KindAssigneeRemoved = "assignee_removed"
	KindCommentAdded    = "comment_added"
)

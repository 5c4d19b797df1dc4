// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"fmt"

	"github.com/wingedpig/ptclient/internal/events"
)

// Describe renders a notification as a one-line message for the user.
func Describe(n events.Notification) string {
	switch n.Kind {
	case events.KindJoinAccepted:
		return fmt.Sprintf("Your request to join %q is accepted", n.String("project_name"))
	case events.KindJoinRejected:
		return fmt.Sprintf("Your request to join %q is rejected", n.String("project_name"))
	case events.KindTaskUpdated:
		return fmt.Sprintf("Task %q updated", n.String("title"))
	case events.KindAssigneeAdded:
		return fmt.Sprintf("You have been assigned to task %q", n.String("title"))
	case events.KindAssigneeRemoved:
		return fmt.Sprintf("You have been removed as assignee from task %q", n.String("title"))
	case events.KindCommentAdded:
		return fmt.Sprintf("New comment added to task %q", n.String("title"))
	default:
		return "New notification received"
	}
}

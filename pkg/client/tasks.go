// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
)

// TaskClient provides access to the tasks of a project and their comments.
//
// Access this client through [Client.Tasks]:
//
//	page, err := client.Tasks.List(ctx, projectID, 1, 20)
type TaskClient struct {
	c *Client
}

func taskPath(projectID string, rest ...string) string {
	p := "/projects/" + url.PathEscape(projectID) + "/tasks"
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// List returns one page of a project's tasks.
func (t *TaskClient) List(ctx context.Context, projectID string, page, limit int) (*TaskPage, error) {
	return Call[TaskPage](ctx, t.c, Get(taskPath(projectID)+pageQuery(page, limit)))
}

// Get returns a task with its assignees.
func (t *TaskClient) Get(ctx context.Context, projectID, taskID string) (*Task, error) {
	return Call[Task](ctx, t.c, Get(taskPath(projectID, taskID)))
}

// Create creates a task. Assignees that could not be added are reported in
// the response warnings rather than failing the call.
func (t *TaskClient) Create(ctx context.Context, projectID string, req CreateTaskRequest) (*CreateTaskResponse, error) {
	return Call[CreateTaskResponse](ctx, t.c, Post(taskPath(projectID), req))
}

// Update changes a task. Added and removed assignees receive
// assignee_added and assignee_removed notifications.
func (t *TaskClient) Update(ctx context.Context, projectID, taskID string, req UpdateTaskRequest) error {
	_, err := t.c.Do(ctx, Put(taskPath(projectID, taskID), req))
	return err
}

// AddComment adds a comment to a task.
func (t *TaskClient) AddComment(ctx context.Context, projectID, taskID, content string) (*Comment, error) {
	return Call[Comment](ctx, t.c, Post(taskPath(projectID, taskID, "comments"), map[string]string{
		"content": content,
	}))
}

// Comments lists the comments on a task, oldest first.
func (t *TaskClient) Comments(ctx context.Context, projectID, taskID string) ([]Comment, error) {
	resp, err := Call[struct {
		Comments []Comment `json:"comments"`
	}](ctx, t.c, Get(taskPath(projectID, taskID, "comments")))
	if err != nil || resp == nil {
		return nil, err
	}
	return resp.Comments, nil
}

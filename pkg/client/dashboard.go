// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "context"

// DashboardClient provides the caller's recently created and joined
// projects and recent tasks.
type DashboardClient struct {
	c *Client
}

// CreatedProjects returns projects the caller created recently.
func (d *DashboardClient) CreatedProjects(ctx context.Context) ([]Project, error) {
	return d.projects(ctx, "/dashboard/projects/created")
}

// JoinedProjects returns projects the caller joined recently.
func (d *DashboardClient) JoinedProjects(ctx context.Context) ([]Project, error) {
	return d.projects(ctx, "/dashboard/projects/joined")
}

// AssignedTasks returns recent tasks assigned to the caller.
func (d *DashboardClient) AssignedTasks(ctx context.Context) ([]DashboardTask, error) {
	return d.tasks(ctx, "/dashboard/tasks/assigned")
}

// UnassignedTasks returns recent unassigned tasks in the caller's projects.
func (d *DashboardClient) UnassignedTasks(ctx context.Context) ([]DashboardTask, error) {
	return d.tasks(ctx, "/dashboard/tasks/unassigned")
}

func (d *DashboardClient) projects(ctx context.Context, path string) ([]Project, error) {
	page, err := CallMapped(ctx, d.c, Get(path), MapProjectPage)
	if err != nil || page == nil {
		return nil, err
	}
	return page.Projects, nil
}

func (d *DashboardClient) tasks(ctx context.Context, path string) ([]DashboardTask, error) {
	resp, err := Call[struct {
		Tasks []DashboardTask `json:"tasks"`
	}](ctx, d.c, Get(path))
	if err != nil || resp == nil {
		return nil, err
	}
	return resp.Tasks, nil
}

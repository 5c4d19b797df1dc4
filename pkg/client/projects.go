// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
	"strconv"
)

// ProjectClient provides access to projects the caller owns or belongs to.
//
// Access this client through [Client.Projects]:
//
//	page, err := client.Projects.List(ctx, 1, 20)
type ProjectClient struct {
	c *Client
}

// List returns one page of the caller's projects. Zero page or limit leaves
// the choice to the service.
func (p *ProjectClient) List(ctx context.Context, page, limit int) (*ProjectPage, error) {
	return CallMapped(ctx, p.c, Get("/projects"+pageQuery(page, limit)), MapProjectPage)
}

// Get returns a project with the caller's role in it.
func (p *ProjectClient) Get(ctx context.Context, id string) (*ProjectDetails, error) {
	return CallMapped(ctx, p.c, Get("/projects/"+url.PathEscape(id)), MapProjectDetails)
}

// Create creates a project owned by the caller. The service rate limits
// project creation per user.
func (p *ProjectClient) Create(ctx context.Context, req CreateProjectRequest) (*Project, error) {
	return CallMapped(ctx, p.c, Post("/projects", req), MapCreatedProject)
}

// Members lists the members of a project.
func (p *ProjectClient) Members(ctx context.Context, id string) ([]Member, error) {
	resp, err := Call[struct {
		Members []UserAPI `json:"members"`
	}](ctx, p.c, Get("/projects/"+url.PathEscape(id)+"/members"))
	if err != nil || resp == nil {
		return nil, err
	}

	members := make([]Member, 0, len(resp.Members))
	for _, m := range resp.Members {
		members = append(members, MapUser(m))
	}
	return members, nil
}

// JoinRequests lists requests to join a project. Only the owner may call it.
func (p *ProjectClient) JoinRequests(ctx context.Context, id string) ([]JoinRequest, error) {
	resp, err := Call[struct {
		JoinRequests []JoinRequest `json:"join_requests"`
	}](ctx, p.c, Get("/projects/"+url.PathEscape(id)+"/join-requests"))
	if err != nil || resp == nil {
		return nil, err
	}
	return resp.JoinRequests, nil
}

// RespondToJoinRequest accepts or rejects a user's request to join. status
// is JoinStatusAccepted or JoinStatusRejected. The requester receives a
// join_accepted or join_rejected notification.
func (p *ProjectClient) RespondToJoinRequest(ctx context.Context, id, userID, status string) error {
	_, err := p.c.Do(ctx, Put("/projects/"+url.PathEscape(id)+"/join-requests", JoinDecision{
		UserID:     userID,
		JoinStatus: status,
	}))
	return err
}

func pageQuery(page, limit int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

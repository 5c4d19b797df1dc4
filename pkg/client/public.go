// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"net/url"
)

// PublicClient provides access to the catalogue of projects open for
// joining.
type PublicClient struct {
	c *Client
}

// List returns one page of public projects.
func (p *PublicClient) List(ctx context.Context, page, limit int) (*ProjectPage, error) {
	return CallMapped(ctx, p.c, Get("/public/projects"+pageQuery(page, limit)), MapProjectPage)
}

// Get returns a public project with the caller's join status.
func (p *PublicClient) Get(ctx context.Context, id string) (*ProjectDetails, error) {
	return CallMapped(ctx, p.c, Get("/public/projects/"+url.PathEscape(id)), MapProjectDetails)
}

// Join asks to join a project. The owner is notified and decides through
// Projects.RespondToJoinRequest.
func (p *PublicClient) Join(ctx context.Context, id string) error {
	_, err := p.c.Do(ctx, Post("/projects/"+url.PathEscape(id)+"/join-requests", nil))
	return err
}

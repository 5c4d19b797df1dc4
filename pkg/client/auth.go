// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "context"

// AuthClient provides session operations.
//
// Access this client through [Client.Auth]:
//
//	me, err := client.Auth.Me(ctx)
type AuthClient struct {
	c *Client
}

// Me returns the authenticated user. Its ID is the identity the realtime
// channel connects with.
func (a *AuthClient) Me(ctx context.Context) (*User, error) {
	return CallMapped(ctx, a.c, Get("/auth/me"), MapUser)
}

// Logout ends the session on the service and marks the local session as
// unauthenticated. A refresh in flight is allowed to finish first so it
// cannot revive the session afterwards.
func (a *AuthClient) Logout(ctx context.Context) error {
	if a.c.session.RefreshInFlight() {
		a.c.logger.Debug().Msg("logout waiting for session refresh")
	}
	if err := a.c.session.Wait(ctx); err != nil {
		return &TransportError{Op: "await refresh", Err: err}
	}
	_, err := a.c.Do(ctx, Post("/auth/logout", nil))
	a.c.session.SetAuthenticated(false)
	return err
}

// Refresh refreshes the session now. It shares an in-flight refresh if one
// is running, and on failure returns ErrUnauthenticated and fires the
// logout handler like an implicit refresh would.
func (a *AuthClient) Refresh(ctx context.Context) error {
	return a.c.recoverSession(ctx, a.c.session.Generation())
}

// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stub

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "session_id"

type sessionEntry struct {
	userID      string
	accessUntil time.Time
	revoked     bool
}

// sessionStore tracks server-side sessions. The cookie holds only the
// session id; access expires after ttl and is renewed by refresh until the
// session is revoked.
type sessionStore struct {
	mu        sync.Mutex
	ttl       time.Duration
	sessions  map[string]*sessionEntry
	refreshes int
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create starts a session for userID and returns its id.
func (s *sessionStore) Create(userID string, now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.sessions[id] = &sessionEntry{userID: userID, accessUntil: now.Add(s.ttl)}
	return id
}

// Access returns the session's user if its access is still valid.
func (s *sessionStore) Access(id string, now time.Time) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || e.revoked || !now.Before(e.accessUntil) {
		return "", false
	}
	return e.userID, true
}

// Refresh renews access for a session that has not been revoked.
func (s *sessionStore) Refresh(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	e, ok := s.sessions[id]
	if !ok || e.revoked {
		return false
	}
	e.accessUntil = now.Add(s.ttl)
	return true
}

// Delete ends a session.
func (s *sessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// ExpireAll invalidates access for every session; refresh still works.
func (s *sessionStore) ExpireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.sessions {
		e.accessUntil = time.Time{}
	}
}

// RevokeAll makes every session unrefreshable.
func (s *sessionStore) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.sessions {
		e.revoked = true
	}
}

// Refreshes returns how many refresh attempts were made.
func (s *sessionStore) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

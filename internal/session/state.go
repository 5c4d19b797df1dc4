// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session tracks whether the process holds a valid session and
// coordinates token refreshes so that concurrent callers share one refresh.
package session

import (
	"context"
	"sync"
)

// Turn tells a caller that observed an expired session what to do next.
type Turn int

const (
	// TurnRefresh means the caller won the claim and must perform the
	// refresh, then call EndRefresh.
	TurnRefresh Turn = iota

	// TurnWait means another caller is refreshing; wait on Ticket.Done and
	// then Join again.
	TurnWait

	// TurnSettled means a refresh completed after the caller's request was
	// sent; Ticket.OK carries its outcome.
	TurnSettled
)

func (t Turn) String() string {
	switch t {
	case TurnRefresh:
		return "refresh"
	case TurnWait:
		return "wait"
	case TurnSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Ticket is the answer Join gives a caller.
type Ticket struct {
	Turn Turn

	// Done is closed when the in-flight refresh finishes. Set for TurnWait.
	Done <-chan struct{}

	// OK is the outcome of the completed refresh. Set for TurnSettled.
	OK bool

	// Generation is the generation the refresh will produce (TurnRefresh)
	// or produced (TurnSettled).
	Generation uint64
}

type flight struct {
	done chan struct{}
}

// State is the process-wide session record.
//
// The zero value is not usable; create one with New. State is safe for
// concurrent use.
type State struct {
	mu            sync.Mutex
	authenticated bool
	inFlight      *flight
	generation    uint64
	lastOK        bool
}

// New creates a session state. authenticated is the initial belief about
// the session, typically false until the first successful call.
func New(authenticated bool) *State {
	return &State{authenticated: authenticated}
}

// IsAuthenticated reports whether the caller currently holds a valid session.
func (s *State) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetAuthenticated records the outcome of a call that proved (or disproved)
// the session.
func (s *State) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

// RefreshInFlight reports whether a refresh is currently claimed.
func (s *State) RefreshInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight != nil
}

// Generation returns the number of refreshes completed so far. Callers
// record it before sending a request and pass it to Join on a 401.
func (s *State) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// BeginRefresh atomically claims the refresh right. It returns false if a
// refresh is already in flight.
func (s *State) BeginRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.claimLocked()
}

func (s *State) claimLocked() bool {
	if s.inFlight != nil {
		return false
	}
	s.inFlight = &flight{done: make(chan struct{})}
	return true
}

// EndRefresh releases the refresh claim, records its outcome and wakes all
// waiters. Calling it without a claim only updates the authenticated flag.
func (s *State) EndRefresh(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = success
	if s.inFlight == nil {
		return
	}
	s.generation++
	s.lastOK = success
	close(s.inFlight.done)
	s.inFlight = nil
}

// Join decides what a caller should do after its request, sent while the
// session was at generation seen, came back unauthenticated. The decision
// and any claim happen under one lock.
func (s *State) Join(seen uint64) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != seen {
		return Ticket{Turn: TurnSettled, OK: s.lastOK, Generation: s.generation}
	}
	if s.inFlight != nil {
		return Ticket{Turn: TurnWait, Done: s.inFlight.done}
	}
	s.claimLocked()
	return Ticket{Turn: TurnRefresh, Generation: s.generation + 1}
}

// Wait blocks until no refresh is in flight or ctx is done.
func (s *State) Wait(ctx context.Context) error {
	s.mu.Lock()
	f := s.inFlight
	s.mu.Unlock()

	if f == nil {
		return nil
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

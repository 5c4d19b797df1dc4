// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sort"
	"sync"
	"time"
)

// HistoryConfig configures notification history.
type HistoryConfig struct {
	MaxEvents int
	MaxAge    time.Duration
}

// History keeps recently received notifications.
type History struct {
	mu        sync.RWMutex
	events    []Notification
	maxEvents int
	maxAge    time.Duration
	matcher   *PatternMatcher
}

// NewHistory creates a new notification history.
func NewHistory(cfg HistoryConfig) *History {
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 200
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}

	return &History{
		events:    make([]Notification, 0),
		maxEvents: cfg.MaxEvents,
		maxAge:    cfg.MaxAge,
		matcher:   NewPatternMatcher(),
	}
}

// Add stores a notification.
func (h *History) Add(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, n)

	if len(h.events) > h.maxEvents {
		h.events = h.events[len(h.events)-h.maxEvents:]
	}
}

// Last returns the most recent notification.
func (h *History) Last() (Notification, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.events) == 0 {
		return Notification{}, false
	}
	return h.events[len(h.events)-1], true
}

// Query retrieves notifications matching filter, oldest first.
func (h *History) Query(filter Filter) []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Notification, 0)
	for _, n := range h.events {
		if h.matchesFilter(n, filter) {
			result = append(result, n)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ReceivedAt.Before(result[j].ReceivedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[len(result)-filter.Limit:]
	}

	return result
}

func (h *History) matchesFilter(n Notification, filter Filter) bool {
	if len(filter.Kinds) > 0 {
		matched := false
		for _, pattern := range filter.Kinds {
			if h.matcher.Match(n.Kind, pattern) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if !filter.Since.IsZero() && n.ReceivedAt.Before(filter.Since) {
		return false
	}

	if !filter.Until.IsZero() && n.ReceivedAt.After(filter.Until) {
		return false
	}

	return true
}

// Prune removes notifications older than max age.
func (h *History) Prune(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := now.Add(-h.maxAge)
	filtered := make([]Notification, 0, len(h.events))
	for _, n := range h.events {
		if n.ReceivedAt.After(cutoff) {
			filtered = append(filtered, n)
		}
	}
	h.events = filtered
}

// Len returns the number of retained notifications.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}

// Clear drops all retained notifications.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

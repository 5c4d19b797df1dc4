// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// PatternMatcher handles notification kind matching.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match checks if a kind matches a pattern.
// Patterns support wildcards:
// - "join_*" matches "join_accepted", "join_rejected", etc.
// - "*_added" matches "assignee_added", "comment_added", etc.
// - "*" matches everything
func (pm *PatternMatcher) Match(kind, pattern string) bool {
	if pattern == "" || kind == "" {
		return false
	}

	if pattern == "*" {
		return true
	}

	if pattern == kind {
		return true
	}

	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(kind, strings.TrimSuffix(pattern, "*"))
	}

	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(kind, strings.TrimPrefix(pattern, "*"))
	}

	return false
}

// Compile pre-compiles a pattern for efficient matching.
func (pm *PatternMatcher) Compile(pattern string) (CompiledPattern, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	if strings.Count(pattern, "*") > 1 {
		return nil, errors.New("pattern may contain at most one wildcard")
	}
	if pattern != "*" && strings.Contains(strings.Trim(pattern, "*"), "*") {
		return nil, errors.New("wildcard must be at the start or end of the pattern")
	}

	return &compiledPattern{
		pattern: pattern,
		matcher: pm,
	}, nil
}

// CompiledPattern is a pre-compiled pattern for efficient matching.
type CompiledPattern interface {
	Match(kind string) bool
}

type compiledPattern struct {
	pattern string
	matcher *PatternMatcher
}

func (cp *compiledPattern) Match(kind string) bool {
	return cp.matcher.Match(kind, cp.pattern)
}

// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/ptclient/pkg/client"
)

func TestParseGlobalFlags(t *testing.T) {
	t.Cleanup(func() {
		jsonOutput, configPath, sessionID = false, "", ""
	})

	rest, err := parseGlobalFlags([]string{"-json", "tasks", "-c", "x.hjson", "p1", "-session", "abc", "-page", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks", "p1", "-page", "2"}, rest)
	assert.True(t, jsonOutput)
	assert.Equal(t, "x.hjson", configPath)
	assert.Equal(t, "abc", sessionID)

	_, err = parseGlobalFlags([]string{"me", "-session"})
	assert.Error(t, err)
}

func TestParsePageArgs(t *testing.T) {
	page, limit, rest, err := parsePageArgs([]string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)
	assert.Equal(t, []string{"p1"}, rest)

	page, limit, rest, err = parsePageArgs([]string{"-limit", "25", "p1", "-page", "3"})
	require.NoError(t, err)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)
	assert.Equal(t, []string{"p1"}, rest)

	_, _, _, err = parsePageArgs([]string{"-page", "0"})
	assert.Error(t, err)
	_, _, _, err = parsePageArgs([]string{"-limit"})
	assert.Error(t, err)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "-", dash(""))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))

	assert.Equal(t, "-", assigneeNames(nil))
	assert.Equal(t, "ada,bob", assigneeNames([]client.Assignee{{Username: "ada"}, {Username: "bob"}}))

	name := "Ada L."
	assert.Equal(t, "unknown", commentAuthor(client.Comment{}))
	assert.Equal(t, "ada", commentAuthor(client.Comment{User: &client.UserAPI{Username: "ada"}}))
	assert.Equal(t, "Ada L.", commentAuthor(client.Comment{User: &client.UserAPI{Username: "ada", DisplayName: &name}}))
}

// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stub

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wingedpig/ptclient/internal/events"
	"github.com/wingedpig/ptclient/pkg/client"
)

func wsURL(httpURL, query string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + DefaultPrefix + "/ws?" + query
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestHub_RequiresIdentity(t *testing.T) {
	_, ts := newTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.URL, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHub_PushToEveryConnection(t *testing.T) {
	s, ts := newTestServer(t)
	hub := s.Hub()

	a := dialHub(t, wsURL(ts.URL, "user_id=u1"))
	b := dialHub(t, wsURL(ts.URL, "user_id=u1"))
	require.Eventually(t, func() bool { return hub.Connections("u1") == 2 }, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, hub.Push("u2", "task_updated", nil))
	assert.Equal(t, 2, hub.Push("u1", "task_updated", map[string]string{"task_id": "t1"}))

	for _, conn := range []*websocket.Conn{a, b} {
		m := readMessage(t, conn)
		assert.Equal(t, "task_updated", m.Type)
		assert.Equal(t, map[string]interface{}{"task_id": "t1"}, m.Data)
	}
}

func TestHub_Disconnect(t *testing.T) {
	s, ts := newTestServer(t)
	hub := s.Hub()

	conn := dialHub(t, wsURL(ts.URL, "user_id=u1"))
	require.Eventually(t, func() bool { return hub.Connections("u1") == 1 }, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, hub.Disconnect("u1"))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool { return hub.Connections("u1") == 0 }, 5*time.Second, 5*time.Millisecond)
}

func TestHub_CustomIdentityParam(t *testing.T) {
	s, ts := newTestServer(t, WithIdentityParam("uid"))

	dialHub(t, wsURL(ts.URL, "uid=u7"))
	require.Eventually(t, func() bool { return s.Hub().Connections("u7") == 1 }, 5*time.Second, 5*time.Millisecond)
}

func TestServer_PushesOnJoinDecisionAndTaskChanges(t *testing.T) {
	s, ts := newTestServer(t)
	ctx := context.Background()
	owner, _ := loggedIn(t, s, ts, "owner")
	guest, guestID := loggedIn(t, s, ts, "guest")

	conn := dialHub(t, wsURL(ts.URL, "user_id="+guestID))
	require.Eventually(t, func() bool { return s.Hub().Connections(guestID) == 1 }, 5*time.Second, 5*time.Millisecond)

	p, err := owner.Projects.Create(ctx, client.CreateProjectRequest{Name: "beta"})
	require.NoError(t, err)
	require.NoError(t, guest.Public.Join(ctx, p.ID))
	require.NoError(t, owner.Projects.RespondToJoinRequest(ctx, p.ID, guestID, client.JoinStatusAccepted))

	m := readMessage(t, conn)
	assert.Equal(t, events.KindJoinAccepted, m.Type)
	assert.Equal(t, "beta", m.Data.(map[string]interface{})["project_name"])

	created, err := owner.Tasks.Create(ctx, p.ID, client.CreateTaskRequest{Title: "t", Status: client.TaskStatusOngoing, Assignees: []string{guestID}})
	require.NoError(t, err)
	assert.Equal(t, events.KindAssigneeAdded, readMessage(t, conn).Type)

	require.NoError(t, owner.Tasks.Update(ctx, p.ID, created.TaskID, client.UpdateTaskRequest{Title: "t2", Status: client.TaskStatusOngoing}))
	m = readMessage(t, conn)
	assert.Equal(t, events.KindTaskUpdated, m.Type)
	assert.Equal(t, "t2", m.Data.(map[string]interface{})["title"])

	_, err = owner.Tasks.AddComment(ctx, p.ID, created.TaskID, "hi")
	require.NoError(t, err)
	assert.Equal(t, events.KindCommentAdded, readMessage(t, conn).Type)

	require.NoError(t, owner.Tasks.Update(ctx, p.ID, created.TaskID, client.UpdateTaskRequest{
		Title:             "t2",
		Status:            client.TaskStatusOngoing,
		AssigneesToRemove: []string{guestID},
	}))
	assert.Equal(t, events.KindAssigneeRemoved, readMessage(t, conn).Type)
}

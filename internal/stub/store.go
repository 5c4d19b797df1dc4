// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package stub

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wingedpig/ptclient/pkg/client"
)

var (
	errNotFound     = errors.New("not found")
	errAccessDenied = errors.New("access denied")
	errInvalid      = errors.New("invalid request")
)

type project struct {
	client.ProjectAPI
	members   map[string]string // user id -> role
	joinedAt  map[string]time.Time
	requests  map[string]*client.JoinRequest
	taskOrder []string
}

// store is the in-memory ptracker data set.
type store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[string]*client.UserAPI
	byName   map[string]string
	projects map[string]*project
	order    []string
	tasks    map[string]*client.Task
	comments map[string][]client.Comment
}

func newStore(now func() time.Time) *store {
	return &store{
		now:      now,
		users:    make(map[string]*client.UserAPI),
		byName:   make(map[string]string),
		projects: make(map[string]*project),
		tasks:    make(map[string]*client.Task),
		comments: make(map[string][]client.Comment),
	}
}

// ensureUser returns the id of username, creating the user if needed.
func (s *store) ensureUser(username, displayName, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byName[username]; ok {
		return id
	}
	u := &client.UserAPI{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	if displayName != "" {
		u.DisplayName = &displayName
	}
	s.users[u.ID] = u
	s.byName[username] = u.ID
	return u.ID
}

func (s *store) user(id string) (client.UserAPI, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return client.UserAPI{}, false
	}
	return *u, true
}

func (s *store) createProject(owner string, req client.CreateProjectRequest) (client.ProjectAPI, error) {
	if req.Name == "" {
		return client.ProjectAPI{}, fmt.Errorf("%w: name is required", errInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	p := &project{
		ProjectAPI: client.ProjectAPI{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: req.Description,
			Skills:      req.Skills,
			Owner:       owner,
			CreatedAt:   now,
		},
		members:  map[string]string{owner: client.RoleOwner},
		joinedAt: map[string]time.Time{owner: now},
		requests: make(map[string]*client.JoinRequest),
	}
	s.projects[p.ID] = p
	s.order = append(s.order, p.ID)
	return p.ProjectAPI, nil
}

// memberLocked returns the project if user belongs to it.
func (s *store) memberLocked(projectID, user string) (*project, error) {
	p, ok := s.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: project %s", errNotFound, projectID)
	}
	if _, ok := p.members[user]; !ok {
		return nil, fmt.Errorf("%w: not a member of project %s", errAccessDenied, projectID)
	}
	return p, nil
}

func (s *store) ownerLocked(projectID, user string) (*project, error) {
	p, err := s.memberLocked(projectID, user)
	if err != nil {
		return nil, err
	}
	if p.members[user] != client.RoleOwner {
		return nil, fmt.Errorf("%w: only the owner may do this", errAccessDenied)
	}
	return p, nil
}

func (s *store) summaryLocked(p *project, user string) client.ProjectSummaryAPI {
	sum := client.ProjectSummaryAPI{ProjectAPI: p.ProjectAPI, Role: p.members[user]}
	for _, id := range p.taskOrder {
		switch s.tasks[id].Status {
		case client.TaskStatusUnassigned:
			sum.UnassignedTasks++
		case client.TaskStatusOngoing:
			sum.OngoingTasks++
		case client.TaskStatusCompleted:
			sum.CompletedTasks++
		case client.TaskStatusAbandoned:
			sum.AbandonedTasks++
		}
	}
	return sum
}

func (s *store) detailsLocked(p *project, user string) client.ProjectDetailsAPI {
	sum := s.summaryLocked(p, user)
	d := client.ProjectDetailsAPI{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Skills:          p.Skills,
		Role:            sum.Role,
		UnassignedTasks: sum.UnassignedTasks,
		OngoingTasks:    sum.OngoingTasks,
		CompletedTasks:  sum.CompletedTasks,
		AbandonedTasks:  sum.AbandonedTasks,
		MemberCount:     len(p.members),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if owner, ok := s.users[p.Owner]; ok {
		o := *owner
		d.Owner = &o
	}
	if jr, ok := p.requests[user]; ok {
		d.JoinStatus = jr.Status
	}
	return d
}

// page slices ids for a 1-based page.
func page[T any](items []T, pageNum, limit int) ([]T, bool) {
	start := (pageNum - 1) * limit
	if start >= len(items) {
		return []T{}, false
	}
	end := min(start+limit, len(items))
	return items[start:end], end < len(items)
}

func (s *store) listProjects(user string, pageNum, limit int) client.ProjectListAPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []client.ProjectSummaryAPI
	for _, id := range s.order {
		p := s.projects[id]
		if _, ok := p.members[user]; ok {
			all = append(all, s.summaryLocked(p, user))
		}
	}
	items, hasNext := page(all, pageNum, limit)
	return client.ProjectListAPI{Projects: items, Page: pageNum, Limit: limit, HasNext: hasNext}
}

func (s *store) getProject(id, user string) (client.ProjectDetailsAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.memberLocked(id, user)
	if err != nil {
		return client.ProjectDetailsAPI{}, err
	}
	return s.detailsLocked(p, user), nil
}

func (s *store) members(id, user string) ([]client.UserAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.memberLocked(id, user)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(p.members))
	for uid := range p.members {
		ids = append(ids, uid)
	}
	sort.Slice(ids, func(i, j int) bool { return p.joinedAt[ids[i]].Before(p.joinedAt[ids[j]]) })
	out := make([]client.UserAPI, 0, len(ids))
	for _, uid := range ids {
		out = append(out, *s.users[uid])
	}
	return out, nil
}

func (s *store) requestJoin(id, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("%w: project %s", errNotFound, id)
	}
	if _, ok := p.members[user]; ok {
		return fmt.Errorf("%w: already a member", errInvalid)
	}
	if jr, ok := p.requests[user]; ok && jr.Status == client.JoinStatusPending {
		return fmt.Errorf("%w: request already pending", errInvalid)
	}
	u := s.users[user]
	p.requests[user] = &client.JoinRequest{
		ProjectID:   id,
		Status:      client.JoinStatusPending,
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		IsActive:    u.IsActive,
		CreatedAt:   s.now(),
	}
	return nil
}

func (s *store) joinRequests(id, user string) ([]client.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownerLocked(id, user)
	if err != nil {
		return nil, err
	}
	out := make([]client.JoinRequest, 0, len(p.requests))
	for _, jr := range p.requests {
		if jr.Status == client.JoinStatusPending {
			out = append(out, *jr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// respondToJoin records the owner's decision and returns the project name
// for the notification.
func (s *store) respondToJoin(id, owner string, d client.JoinDecision) (string, error) {
	if d.JoinStatus != client.JoinStatusAccepted && d.JoinStatus != client.JoinStatusRejected {
		return "", fmt.Errorf("%w: join_status must be Accepted or Rejected", errInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.ownerLocked(id, owner)
	if err != nil {
		return "", err
	}
	jr, ok := p.requests[d.UserID]
	if !ok || jr.Status != client.JoinStatusPending {
		return "", fmt.Errorf("%w: no pending request from %s", errNotFound, d.UserID)
	}
	now := s.now()
	jr.Status = d.JoinStatus
	jr.UpdatedAt = &now
	if d.JoinStatus == client.JoinStatusAccepted {
		p.members[d.UserID] = client.RoleMember
		p.joinedAt[d.UserID] = now
	}
	return p.Name, nil
}

func (s *store) listPublic(user string, pageNum, limit int) client.ProjectListAPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]client.ProjectSummaryAPI, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.summaryLocked(s.projects[id], user))
	}
	items, hasNext := page(all, pageNum, limit)
	return client.ProjectListAPI{Projects: items, Page: pageNum, Limit: limit, HasNext: hasNext}
}

func (s *store) getPublic(id, user string) (client.ProjectDetailsAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return client.ProjectDetailsAPI{}, fmt.Errorf("%w: project %s", errNotFound, id)
	}
	return s.detailsLocked(p, user), nil
}

func (s *store) assigneeLocked(id string) (client.Assignee, bool) {
	u, ok := s.users[id]
	if !ok {
		return client.Assignee{}, false
	}
	return client.Assignee{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}, true
}

// createTask adds a task; assignees that are not project members are
// reported as warnings.
func (s *store) createTask(projectID, user string, req client.CreateTaskRequest) (client.CreateTaskResponse, error) {
	if req.Title == "" {
		return client.CreateTaskResponse{}, fmt.Errorf("%w: title is required", errInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.memberLocked(projectID, user)
	if err != nil {
		return client.CreateTaskResponse{}, err
	}
	status := req.Status
	if status == "" {
		status = client.TaskStatusUnassigned
	}
	t := &client.Task{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     req.Title,
		Status:    status,
		CreatedAt: s.now(),
	}
	if req.Description != "" {
		desc := req.Description
		t.Description = &desc
	}
	resp := client.CreateTaskResponse{TaskID: t.ID, Warnings: []string{}}
	for _, a := range req.Assignees {
		if _, member := p.members[a]; !member {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("user %s is not a project member", a))
			continue
		}
		if as, ok := s.assigneeLocked(a); ok {
			t.Assignees = append(t.Assignees, as)
		}
	}
	s.tasks[t.ID] = t
	p.taskOrder = append(p.taskOrder, t.ID)
	return resp, nil
}

func (s *store) taskLocked(projectID, taskID, user string) (*client.Task, error) {
	if _, err := s.memberLocked(projectID, user); err != nil {
		return nil, err
	}
	t, ok := s.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, fmt.Errorf("%w: task %s", errNotFound, taskID)
	}
	return t, nil
}

func copyTask(t *client.Task) client.Task {
	c := *t
	c.Assignees = slices.Clone(t.Assignees)
	return c
}

func (s *store) listTasks(projectID, user string, pageNum, limit int) (client.TaskPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.memberLocked(projectID, user)
	if err != nil {
		return client.TaskPage{}, err
	}
	all := make([]client.Task, 0, len(p.taskOrder))
	for _, id := range p.taskOrder {
		all = append(all, copyTask(s.tasks[id]))
	}
	items, hasNext := page(all, pageNum, limit)
	return client.TaskPage{Tasks: items, Page: pageNum, Limit: limit, HasNext: hasNext}, nil
}

func (s *store) getTask(projectID, taskID, user string) (client.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(projectID, taskID, user)
	if err != nil {
		return client.Task{}, err
	}
	return copyTask(t), nil
}

// taskChange is what an update did, for notifications.
type taskChange struct {
	task    client.Task
	added   []string
	removed []string
	notify  []string
}

func (s *store) updateTask(projectID, taskID, user string, req client.UpdateTaskRequest) (taskChange, error) {
	if req.Title == "" || req.Status == "" {
		return taskChange{}, fmt.Errorf("%w: title and status are required", errInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(projectID, taskID, user)
	if err != nil {
		return taskChange{}, err
	}
	p := s.projects[projectID]

	var ch taskChange
	for _, id := range req.AssigneesToRemove {
		i := slices.IndexFunc(t.Assignees, func(a client.Assignee) bool { return a.ID == id })
		if i >= 0 {
			t.Assignees = slices.Delete(t.Assignees, i, i+1)
			ch.removed = append(ch.removed, id)
		}
	}
	for _, id := range req.AssigneesToAdd {
		if _, member := p.members[id]; !member {
			continue
		}
		if slices.ContainsFunc(t.Assignees, func(a client.Assignee) bool { return a.ID == id }) {
			continue
		}
		if as, ok := s.assigneeLocked(id); ok {
			t.Assignees = append(t.Assignees, as)
			ch.added = append(ch.added, id)
		}
	}

	now := s.now()
	t.Title = req.Title
	t.Status = req.Status
	if req.Description != "" {
		desc := req.Description
		t.Description = &desc
	} else {
		t.Description = nil
	}
	t.UpdatedAt = &now

	ch.task = copyTask(t)
	for _, a := range t.Assignees {
		if a.ID != user && !slices.Contains(ch.added, a.ID) {
			ch.notify = append(ch.notify, a.ID)
		}
	}
	return ch, nil
}

func (s *store) addComment(projectID, taskID, user, content string) (client.Comment, []string, error) {
	if content == "" {
		return client.Comment{}, nil, fmt.Errorf("%w: content is required", errInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskLocked(projectID, taskID, user)
	if err != nil {
		return client.Comment{}, nil, err
	}
	u := *s.users[user]
	c := client.Comment{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		TaskID:    taskID,
		User:      &u,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.comments[taskID] = append(s.comments[taskID], c)

	var notify []string
	for _, a := range t.Assignees {
		if a.ID != user {
			notify = append(notify, a.ID)
		}
	}
	return c, notify, nil
}

func (s *store) listComments(projectID, taskID, user string) ([]client.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.taskLocked(projectID, taskID, user); err != nil {
		return nil, err
	}
	return append([]client.Comment{}, s.comments[taskID]...), nil
}

// recentProjects lists projects the user created or joined, newest first.
func (s *store) recentProjects(user string, created bool, limit int) client.ProjectListAPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []client.ProjectSummaryAPI
	for i := len(s.order) - 1; i >= 0; i-- {
		p := s.projects[s.order[i]]
		role, ok := p.members[user]
		if !ok || (role == client.RoleOwner) != created {
			continue
		}
		all = append(all, s.summaryLocked(p, user))
	}
	items, hasNext := page(all, 1, limit)
	return client.ProjectListAPI{Projects: items, Page: 1, Limit: limit, HasNext: hasNext}
}

// recentTasks lists tasks assigned to the user, or unassigned tasks in the
// user's projects.
func (s *store) recentTasks(user string, assigned bool, limit int) []client.DashboardTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []client.DashboardTask{}
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		p := s.projects[s.order[i]]
		if _, ok := p.members[user]; !ok {
			continue
		}
		for j := len(p.taskOrder) - 1; j >= 0 && len(out) < limit; j-- {
			t := s.tasks[p.taskOrder[j]]
			mine := slices.ContainsFunc(t.Assignees, func(a client.Assignee) bool { return a.ID == user })
			if (assigned && !mine) || (!assigned && len(t.Assignees) > 0) {
				continue
			}
			out = append(out, client.DashboardTask{
				ID:          t.ID,
				ProjectName: p.Name,
				Title:       t.Title,
				Status:      t.Status,
				CreatedAt:   t.CreatedAt,
				UpdatedAt:   t.UpdatedAt,
			})
		}
	}
	return out
}

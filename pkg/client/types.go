// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// Roles a caller can hold in a project.
const (
	RoleOwner    = "Owner"
	RoleAssignee = "Assignee"
	RoleMember   = "Member"
)

// Task statuses.
const (
	TaskStatusUnassigned = "Unassigned"
	TaskStatusOngoing    = "Ongoing"
	TaskStatusCompleted  = "Completed"
	TaskStatusAbandoned  = "Abandoned"
)

// Join request statuses.
const (
	JoinStatusPending  = "Pending"
	JoinStatusAccepted = "Accepted"
	JoinStatusRejected = "Rejected"
)

// Wire types mirror the service's JSON. Optional fields are pointers; the
// Map functions flatten them into the domain types below.

// UserAPI is the wire form of the authenticated user.
type UserAPI struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName *string    `json:"display_name"`
	Email       string     `json:"email"`
	AvatarURL   *string    `json:"avatar_url"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// MemberAPI is the wire form of a project member.
type MemberAPI = UserAPI

// ProjectAPI is the wire form of a project as returned on creation.
type ProjectAPI struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	Skills      *string    `json:"skills"`
	Owner       string     `json:"owner"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// ProjectSummaryAPI is the wire form of a listed project.
type ProjectSummaryAPI struct {
	ProjectAPI
	Role            string `json:"role"`
	UnassignedTasks int    `json:"unassigned_tasks"`
	OngoingTasks    int    `json:"ongoing_tasks"`
	CompletedTasks  int    `json:"completed_tasks"`
	AbandonedTasks  int    `json:"abandoned_tasks"`
}

// ProjectDetailsAPI is the wire form of a single project.
type ProjectDetailsAPI struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description"`
	Skills          *string    `json:"skills"`
	Role            string     `json:"role"`
	Owner           *MemberAPI `json:"owner"`
	UnassignedTasks int        `json:"unassigned_tasks"`
	OngoingTasks    int        `json:"ongoing_tasks"`
	CompletedTasks  int        `json:"completed_tasks"`
	AbandonedTasks  int        `json:"abandoned_tasks"`
	MemberCount     int        `json:"members_count"`
	JoinStatus      string     `json:"join_status,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

// ProjectListAPI is a page of projects.
type ProjectListAPI struct {
	Projects []ProjectSummaryAPI `json:"projects"`
	Page     int                 `json:"page"`
	Limit    int                 `json:"limit"`
	HasNext  bool                `json:"has_next"`
}

// Domain types.

// User is the authenticated user.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	AvatarURL   string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Name returns the display name, falling back to the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Member is a project member.
type Member = User

// Project is a listed project with task counts.
type Project struct {
	ID              string
	Name            string
	Description     string
	Skills          string
	Owner           string
	Role            string
	UnassignedTasks int
	OngoingTasks    int
	CompletedTasks  int
	AbandonedTasks  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ProjectDetails is a single project as seen by the caller.
type ProjectDetails struct {
	Project
	OwnerMember *Member
	MemberCount int
	JoinStatus  string
}

// ProjectPage is a page of projects.
type ProjectPage struct {
	Projects []Project
	Page     int
	Limit    int
	HasNext  bool
}

// Task is a task with its assignees.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Assignees   []Assignee `json:"assignees"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Assignee is a user assigned to a task.
type Assignee struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name"`
}

// TaskPage is a page of tasks.
type TaskPage struct {
	Tasks   []Task `json:"tasks"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
	HasNext bool   `json:"has_next"`
}

// DashboardTask is one of the caller's recent tasks.
type DashboardTask struct {
	ID          string     `json:"id"`
	ProjectName string     `json:"project_name"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Comment is a comment on a task.
type Comment struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	TaskID    string     `json:"task_id"`
	User      *UserAPI   `json:"user"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// JoinRequest is a pending or decided request to join a project.
type JoinRequest struct {
	ProjectID   string     `json:"project_id"`
	Status      string     `json:"status"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	DisplayName *string    `json:"display_name"`
	Email       string     `json:"email"`
	AvatarURL   *string    `json:"avatar_url"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Request bodies.

// CreateProjectRequest is the body of Projects.Create.
type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Skills      *string `json:"skills,omitempty"`
}

// CreateTaskRequest is the body of Tasks.Create.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Assignees   []string `json:"assignees"`
	Status      string   `json:"status"`
}

// CreateTaskResponse is returned by Tasks.Create. Warnings name assignees
// that could not be added.
type CreateTaskResponse struct {
	TaskID   string   `json:"task_id"`
	Warnings []string `json:"warnings"`
}

// UpdateTaskRequest is the body of Tasks.Update.
type UpdateTaskRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Status            string   `json:"status"`
	AssigneesToAdd    []string `json:"assignees_to_add"`
	AssigneesToRemove []string `json:"assignees_to_remove"`
}

// JoinDecision is the body of Projects.RespondToJoinRequest.
type JoinDecision struct {
	UserID     string `json:"user_id"`
	JoinStatus string `json:"join_status"`
}

// Mappers.

// MapUser converts the wire user.
func MapUser(u UserAPI) User {
	return User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: deref(u.DisplayName),
		Email:       u.Email,
		AvatarURL:   deref(u.AvatarURL),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   derefTime(u.UpdatedAt),
	}
}

// MapProject converts a listed project.
func MapProject(p ProjectSummaryAPI) Project {
	return Project{
		ID:              p.ID,
		Name:            p.Name,
		Description:     deref(p.Description),
		Skills:          deref(p.Skills),
		Owner:           p.Owner,
		Role:            p.Role,
		UnassignedTasks: p.UnassignedTasks,
		OngoingTasks:    p.OngoingTasks,
		CompletedTasks:  p.CompletedTasks,
		AbandonedTasks:  p.AbandonedTasks,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       derefTime(p.UpdatedAt),
	}
}

// MapCreatedProject converts the project returned on creation. The caller
// is its owner.
func MapCreatedProject(p ProjectAPI) Project {
	return MapProject(ProjectSummaryAPI{ProjectAPI: p, Role: RoleOwner})
}

// MapProjectDetails converts a single project.
func MapProjectDetails(p ProjectDetailsAPI) ProjectDetails {
	d := ProjectDetails{
		Project: Project{
			ID:              p.ID,
			Name:            p.Name,
			Description:     deref(p.Description),
			Skills:          deref(p.Skills),
			Role:            p.Role,
			UnassignedTasks: p.UnassignedTasks,
			OngoingTasks:    p.OngoingTasks,
			CompletedTasks:  p.CompletedTasks,
			AbandonedTasks:  p.AbandonedTasks,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       derefTime(p.UpdatedAt),
		},
		MemberCount: p.MemberCount,
		JoinStatus:  p.JoinStatus,
	}
	if p.Owner != nil {
		owner := MapUser(*p.Owner)
		d.Owner = owner.ID
		d.OwnerMember = &owner
	}
	return d
}

// MapProjectPage converts a page of listed projects.
func MapProjectPage(l ProjectListAPI) ProjectPage {
	page := ProjectPage{
		Projects: make([]Project, 0, len(l.Projects)),
		Page:     l.Page,
		Limit:    l.Limit,
		HasNext:  l.HasNext,
	}
	for _, p := range l.Projects {
		page.Projects = append(page.Projects, MapProject(p))
	}
	return page
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

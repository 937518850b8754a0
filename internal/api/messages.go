package api

import "time"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Membership is a user's role in a project together with the contribution
// ledger.
type Membership struct {
	ProjectID           string     `json:"project_id"`
	UserID              string     `json:"user_id"`
	Role                string     `json:"role"`
	ContributionMinutes int64      `json:"contribution_minutes"`
	LastActivity        *time.Time `json:"last_activity,omitempty"`
	SessionStartedAt    *time.Time `json:"session_started_at,omitempty"`
}

type Member struct {
	Membership
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Assignment struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type Empty struct{}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// auth

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// users

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserRequest struct {
	UserID string `json:"user_id"`
}

type UpdateUserRequest struct {
	UserID   string  `json:"user_id"`
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

type UserResponse struct {
	User User `json:"user"`
}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

// projects

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ProjectRequest struct {
	ProjectID string `json:"project_id"`
}

type UpdateProjectRequest struct {
	ProjectID   string  `json:"project_id"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ProjectResponse struct {
	Project Project `json:"project"`
}

type ProjectDetailsResponse struct {
	Project Project  `json:"project"`
	Members []Member `json:"members"`
	Tasks   []Task   `json:"tasks"`
}

// ListProjectsRequest narrows the highest-priority task of each project to
// titles containing TitleCondition.
type ListProjectsRequest struct {
	TitleCondition string `json:"title_condition,omitempty"`
}

type ProjectSummary struct {
	Project             Project `json:"project"`
	LatestTask          *Task   `json:"latest_task,omitempty"`
	OldestTask          *Task   `json:"oldest_task,omitempty"`
	HighestPriorityTask *Task   `json:"highest_priority_task,omitempty"`
}

type ListProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

// memberships

type AssignUsersRequest struct {
	ProjectID   string       `json:"project_id"`
	Assignments []Assignment `json:"assignments"`
}

type AssignUsersResponse struct {
	Memberships []Membership `json:"memberships"`
}

type MemberRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
}

type UpdateMemberRoleRequest struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

type MembershipResponse struct {
	Membership Membership `json:"membership"`
}

type ListMembersResponse struct {
	Members []Member `json:"members"`
}

type AdjustContributionRequest struct {
	ProjectID    string `json:"project_id"`
	UserID       string `json:"user_id"`
	DeltaMinutes int64  `json:"delta_minutes"`
}

type ContributionResponse struct {
	ContributionMinutes int64 `json:"contribution_minutes"`
}

// tasks

type CreateTaskRequest struct {
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type TaskRequest struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
}

// UpdateTaskRequest carries a partial update. NewProjectID may only repeat
// the current project.
type UpdateTaskRequest struct {
	ProjectID    string     `json:"project_id"`
	TaskID       string     `json:"task_id"`
	NewProjectID *string    `json:"new_project_id,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
}

type FilterTasksRequest struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type TaskResponse struct {
	Task Task `json:"task"`
}

type ListTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

type AssignUserToTaskRequest struct {
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id"`
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
}

type UpdateTaskStatusRequest struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type AddTaskNoteRequest struct {
	TaskID string `json:"task_id"`
	Note   string `json:"note"`
}

// work sessions

type SessionRequest struct {
	TaskID string `json:"task_id"`
}

type StartTaskResponse struct {
	ProjectID string    `json:"project_id"`
	TaskID    string    `json:"task_id"`
	StartedAt time.Time `json:"started_at"`
}

type EndTaskResponse struct {
	ProjectID         string    `json:"project_id"`
	TaskID            string    `json:"task_id"`
	ElapsedMinutes    int64     `json:"elapsed_minutes"`
	CumulativeMinutes int64     `json:"cumulative_minutes"`
	EndedAt           time.Time `json:"ended_at"`
}

// reports

type ExportContributionsResponse struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expires_at"`
}

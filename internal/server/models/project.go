package models

import "time"

type Project struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProjectPatch struct {
	Name        *string
	Description *string
}

// ProjectDetails is a project together with its members and tasks.
type ProjectDetails struct {
	Project Project
	Members []Member
	Tasks   []Task
}

// TaskHighlights are the tasks shown next to a project in listings. Each
// field is nil when the project has no matching task.
type TaskHighlights struct {
	Latest *Task
	Oldest *Task
	// HighestPriority is the newest high-priority task whose title contains
	// the requested condition.
	HighestPriority *Task
}

type ProjectSummary struct {
	Project Project
	TaskHighlights
}

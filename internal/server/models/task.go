package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusNew, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// MaxNoteLength is the maximum number of characters in a task note.
const MaxNoteLength = 1000

type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      TaskStatus
	Priority    Priority
	DueDate     *time.Time
	Note        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the user-editable fields of t.
func (t *Task) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	if utf8.RuneCountInString(t.Note) > MaxNoteLength {
		return fmt.Errorf("note exceeds %d characters", MaxNoteLength)
	}
	return nil
}

// TaskPatch carries optional task changes. ProjectID is accepted only to be
// rejected when it differs from the task's project.
type TaskPatch struct {
	ProjectID   *string
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *Priority
	DueDate     *time.Time
	ClearDue    bool
}

// Apply copies the non-nil fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.ClearDue {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
}

// TaskFilter narrows FilterTasks; empty fields match everything.
type TaskFilter struct {
	Status   TaskStatus
	Priority Priority
}

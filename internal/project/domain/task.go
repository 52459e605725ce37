package domain

import (
	"errors"
	"time"
)

// Task is a unit of work inside a project. AssigneeID, when set, must be a
// member of the task's project.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      TaskStatus
	AssigneeID  string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress || s == TaskStatusDone
}

// Validate validates the task for persistence.
func (t *Task) Validate() error {
	if t.Title == "" {
		return errors.New("title is required")
	}
	if t.ProjectID == "" {
		return errors.New("project_id is required")
	}
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	if !t.Status.Valid() {
		return errors.New("status must be todo, in_progress, or done")
	}
	return nil
}

// internal/models/task.go
package models

import (
	"database/sql"
	"time"
)

// Task status constants
const (
	TaskStatusNotStarted    = "not_started"
	TaskStatusInProgress    = "in_progress"
	TaskStatusPendingReview = "pending_review"
	TaskStatusCompleted     = "completed"
	TaskStatusBlocked       = "blocked"
	TaskStatusCancelled     = "cancelled"
)

type Task struct {
	ID        string       `db:"id"`
	Title     string       `db:"title"`
	OwnerID   string       `db:"owner_id"`
	Status    string       `db:"status"`
	DueDate   sql.NullTime `db:"due_date"`
	DeletedAt sql.NullTime `db:"deleted_at"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// TaskUpdate is a timestamped progress snapshot. A row carrying a status
// marks the transition into that status at CreatedAt.
type TaskUpdate struct {
	ID                 string         `db:"id"`
	TaskID             string         `db:"task_id"`
	Status             sql.NullString `db:"status"`
	BlockerDescription sql.NullString `db:"blocker_description"`
	Note               string         `db:"note"`
	CreatedAt          time.Time      `db:"created_at"`
}

// ActiveStatuses returns the statuses a task can hold while still being
// subject to supervisory scans. Completed and cancelled tasks are terminal.
func ActiveStatuses() []string {
	return []string{
		TaskStatusNotStarted,
		TaskStatusInProgress,
		TaskStatusPendingReview,
		TaskStatusBlocked,
	}
}

// internal/repository/task_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/emrekoca/taskwarden/internal/models"
)

const taskColumns = `id, title, owner_id, status, due_date, deleted_at, created_at, updated_at`

// TaskRepository provides the read-side task queries the supervisory scans
// need. Task rows are owned by the task-management subsystem; nothing here
// writes them.
type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// ListActiveDueBetween returns non-deleted, non-terminal tasks whose due
// date falls in (after, before].
func (r *TaskRepository) ListActiveDueBetween(ctx context.Context, after, before time.Time) ([]models.Task, error) {
	query, args, err := sqlx.In(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE deleted_at IS NULL
		   AND due_date > ? AND due_date <= ?
		   AND status NOT IN (?)
		 ORDER BY due_date`,
		after.UTC(), before.UTC(),
		[]string{models.TaskStatusCompleted, models.TaskStatusCancelled},
	)
	if err != nil {
		return nil, fmt.Errorf("building due-between query: %w", err)
	}

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks due between %s and %s: %w", after, before, err)
	}
	return tasks, nil
}

// ListActiveDueBefore returns non-deleted, non-terminal tasks whose due
// date is strictly before cutoff.
func (r *TaskRepository) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]models.Task, error) {
	query, args, err := sqlx.In(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE deleted_at IS NULL
		   AND due_date < ?
		   AND status NOT IN (?)
		 ORDER BY due_date`,
		cutoff.UTC(),
		[]string{models.TaskStatusCompleted, models.TaskStatusCancelled},
	)
	if err != nil {
		return nil, fmt.Errorf("building due-before query: %w", err)
	}

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks due before %s: %w", cutoff, err)
	}
	return tasks, nil
}

// ListActiveByStatus returns non-deleted tasks in any of the given statuses.
func (r *TaskRepository) ListActiveByStatus(ctx context.Context, statuses ...string) ([]models.Task, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		`SELECT `+taskColumns+` FROM tasks
		 WHERE deleted_at IS NULL
		   AND status IN (?)
		 ORDER BY created_at`,
		statuses,
	)
	if err != nil {
		return nil, fmt.Errorf("building by-status query: %w", err)
	}

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying tasks by status %v: %w", statuses, err)
	}
	return tasks, nil
}

// LatestUpdates returns the most recent update per task, for the given
// task ids. Tasks with no updates are absent from the result.
func (r *TaskRepository) LatestUpdates(ctx context.Context, taskIDs []string) (map[string]models.TaskUpdate, error) {
	return r.latestUpdates(ctx, taskIDs, "")
}

// LatestStatusUpdates is LatestUpdates restricted to updates that set the
// given status, used to find when a task entered that status most recently.
func (r *TaskRepository) LatestStatusUpdates(ctx context.Context, taskIDs []string, status string) (map[string]models.TaskUpdate, error) {
	return r.latestUpdates(ctx, taskIDs, status)
}

func (r *TaskRepository) latestUpdates(ctx context.Context, taskIDs []string, status string) (map[string]models.TaskUpdate, error) {
	if len(taskIDs) == 0 {
		return map[string]models.TaskUpdate{}, nil
	}

	q := `SELECT id, task_id, status, blocker_description, note, created_at
	      FROM task_updates
	      WHERE task_id IN (?)`
	inArgs := []interface{}{taskIDs}
	if status != "" {
		q += ` AND status = ?`
		inArgs = append(inArgs, status)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	query, args, err := sqlx.In(q, inArgs...)
	if err != nil {
		return nil, fmt.Errorf("building updates query: %w", err)
	}

	var updates []models.TaskUpdate
	if err := r.db.SelectContext(ctx, &updates, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying task updates: %w", err)
	}

	// Rows come back newest first; keep the first one seen per task.
	latest := make(map[string]models.TaskUpdate, len(taskIDs))
	for _, u := range updates {
		if _, ok := latest[u.TaskID]; !ok {
			latest[u.TaskID] = u
		}
	}
	return latest, nil
}

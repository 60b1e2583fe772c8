// internal/supervisor/supervisor.go
package supervisor

import (
	"context"
	"time"

	"github.com/emrekoca/taskwarden/internal/models"
)

// Supervisory thresholds. Each scan derives eligibility fresh from task
// state and these windows; nothing is persisted between passes except the
// notification log.
const (
	// DueSoonWindow is how far ahead of the due date the due-soon scan
	// looks.
	DueSoonWindow = 48 * time.Hour

	// NoUpdateThreshold is how long a task may sit without a progress
	// update before the stale scan nudges its owner.
	NoUpdateThreshold = 7 * 24 * time.Hour

	// BlockedThreshold is how long a task may stay blocked before the
	// blocked scan alerts the owner and their manager.
	BlockedThreshold = 48 * time.Hour

	// DedupWindow suppresses repeat notifications for the same
	// (task, trigger, channel) tuple.
	DedupWindow = 24 * time.Hour

	// OverdueRepeatDays sets the overdue reminder cadence: daily for the
	// first OverdueRepeatDays days, then only on exact multiples.
	OverdueRepeatDays = 3
)

// TaskStore is the read-only view of the task subsystem the scans need.
type TaskStore interface {
	ListActiveDueBetween(ctx context.Context, after, before time.Time) ([]models.Task, error)
	ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]models.Task, error)
	ListActiveByStatus(ctx context.Context, statuses ...string) ([]models.Task, error)
	LatestUpdates(ctx context.Context, taskIDs []string) (map[string]models.TaskUpdate, error)
	LatestStatusUpdates(ctx context.Context, taskIDs []string, status string) (map[string]models.TaskUpdate, error)
}

// UserStore resolves recipients and department managers.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	DepartmentManagers(ctx context.Context, departmentID string) ([]models.User, error)
}

// NotificationStore writes in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
}

// Ledger is the append-only dedup log.
type Ledger interface {
	SentSince(ctx context.Context, taskID, triggerType, channel string, cutoff time.Time) (bool, error)
	Append(ctx context.Context, taskID, triggerType, channel string, sentAt time.Time) error
}

// Event is one (task, trigger) firing produced by a scanner, carrying the
// per-recipient deliveries: always the owner's, plus the manager escalation
// when one resolves. It lives only for the duration of one scan pass; the
// dispatcher turns it into concrete notifications.
type Event struct {
	TaskID      string
	TriggerType string
	Deliveries  []Delivery
}

// Delivery is one recipient's copy of an event.
type Delivery struct {
	RecipientID string
	Title       string
	Content     string

	// PushEligible marks deliveries that may additionally go out over the
	// push channel, subject to recipient contact info and configuration.
	PushEligible bool
}

func (ev Event) pushEligible() bool {
	for _, del := range ev.Deliveries {
		if del.PushEligible {
			return true
		}
	}
	return false
}

// ScanResult reports what one full scan pass produced.
type ScanResult struct {
	DueSoon  int `json:"due_soon"`
	Overdue  int `json:"overdue"`
	NoUpdate int `json:"no_update"`
	Blocked  int `json:"blocked"`
	PushSent int `json:"push_sent"`
	Total    int `json:"total"`

	// Errors holds per-scanner failure descriptions; a scanner failing
	// does not stop the others.
	Errors []string `json:"errors,omitempty"`
}

// ceilDays converts a duration to whole days, rounding up. A duration of
// exactly 24h is one day.
func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	day := 24 * time.Hour
	return int((d + day - 1) / day)
}

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

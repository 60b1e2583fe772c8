// internal/supervisor/fakes_test.go
package supervisor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/emrekoca/taskwarden/internal/models"
	"github.com/emrekoca/taskwarden/pkg/wecom"
)

var errUserMissing = errors.New("user not found")

// fakeTaskStore serves canned tasks and updates, replicating the repository
// filters in memory.
type fakeTaskStore struct {
	tasks   []models.Task
	updates []models.TaskUpdate

	dueBetweenErr error
	dueBeforeErr  error
	byStatusErr   error

	// blockDueBetween makes ListActiveDueBetween wait until the channel is
	// closed; started is closed once the call is underway.
	blockDueBetween chan struct{}
	started         chan struct{}
	startOnce       sync.Once
}

func isTerminal(status string) bool {
	return status == models.TaskStatusCompleted || status == models.TaskStatusCancelled
}

func (f *fakeTaskStore) ListActiveDueBetween(ctx context.Context, after, before time.Time) ([]models.Task, error) {
	if f.blockDueBetween != nil {
		f.startOnce.Do(func() { close(f.started) })
		<-f.blockDueBetween
	}
	if f.dueBetweenErr != nil {
		return nil, f.dueBetweenErr
	}
	var out []models.Task
	for _, t := range f.tasks {
		if t.DeletedAt.Valid || isTerminal(t.Status) || !t.DueDate.Valid {
			continue
		}
		if t.DueDate.Time.After(after) && !t.DueDate.Time.After(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListActiveDueBefore(ctx context.Context, cutoff time.Time) ([]models.Task, error) {
	if f.dueBeforeErr != nil {
		return nil, f.dueBeforeErr
	}
	var out []models.Task
	for _, t := range f.tasks {
		if t.DeletedAt.Valid || isTerminal(t.Status) || !t.DueDate.Valid {
			continue
		}
		if t.DueDate.Time.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ListActiveByStatus(ctx context.Context, statuses ...string) ([]models.Task, error) {
	if f.byStatusErr != nil {
		return nil, f.byStatusErr
	}
	var out []models.Task
	for _, t := range f.tasks {
		if t.DeletedAt.Valid {
			continue
		}
		for _, s := range statuses {
			if t.Status == s {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTaskStore) LatestUpdates(ctx context.Context, taskIDs []string) (map[string]models.TaskUpdate, error) {
	return f.latest(taskIDs, ""), nil
}

func (f *fakeTaskStore) LatestStatusUpdates(ctx context.Context, taskIDs []string, status string) (map[string]models.TaskUpdate, error) {
	return f.latest(taskIDs, status), nil
}

func (f *fakeTaskStore) latest(taskIDs []string, status string) map[string]models.TaskUpdate {
	wanted := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}
	out := make(map[string]models.TaskUpdate)
	for _, u := range f.updates {
		if !wanted[u.TaskID] {
			continue
		}
		if status != "" && (!u.Status.Valid || u.Status.String != status) {
			continue
		}
		if cur, ok := out[u.TaskID]; !ok || u.CreatedAt.After(cur.CreatedAt) {
			out[u.TaskID] = u
		}
	}
	return out
}

type fakeUserStore struct {
	users map[string]models.User
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errUserMissing
	}
	return &u, nil
}

func (f *fakeUserStore) DepartmentManagers(ctx context.Context, departmentID string) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.Role == models.RoleManager && u.DepartmentID.Valid && u.DepartmentID.String == departmentID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeNotificationStore struct {
	created   []models.Notification
	createErr error
}

func (f *fakeNotificationStore) Create(ctx context.Context, n models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

// byType filters created notifications by trigger type.
func (f *fakeNotificationStore) byType(triggerType string) []models.Notification {
	var out []models.Notification
	for _, n := range f.created {
		if n.Type == triggerType {
			out = append(out, n)
		}
	}
	return out
}

type fakeLedger struct {
	entries   []models.NotificationLog
	sentErr   error
	appendErr error
}

func (f *fakeLedger) SentSince(ctx context.Context, taskID, triggerType, channel string, cutoff time.Time) (bool, error) {
	if f.sentErr != nil {
		return false, f.sentErr
	}
	for _, e := range f.entries {
		if e.TaskID == taskID && e.TriggerType == triggerType && e.Channel == channel && !e.SentAt.Before(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) Append(ctx context.Context, taskID, triggerType, channel string, sentAt time.Time) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, models.NotificationLog{
		TaskID:      taskID,
		TriggerType: triggerType,
		Channel:     channel,
		SentAt:      sentAt,
	})
	return nil
}

func (f *fakeLedger) count(channel string) int {
	n := 0
	for _, e := range f.entries {
		if e.Channel == channel {
			n++
		}
	}
	return n
}

// testEnv wires an Engine over the fakes with a mock push service.
type testEnv struct {
	tasks  *fakeTaskStore
	users  *fakeUserStore
	notes  *fakeNotificationStore
	ledger *fakeLedger
	pusher *wecom.MockPushService
	engine *Engine
}

func newTestEnv() *testEnv {
	env := &testEnv{
		tasks:  &fakeTaskStore{},
		users:  &fakeUserStore{users: map[string]models.User{}},
		notes:  &fakeNotificationStore{},
		ledger: &fakeLedger{},
		pusher: wecom.NewMockPushService(),
	}
	dispatcher := NewDispatcher(env.notes, env.ledger, env.users, env.pusher, "https://tasks.example.com", zerolog.Nop())
	resolver := NewResolver(env.users)
	env.engine = NewEngine(env.tasks, env.users, dispatcher, resolver, zerolog.Nop())
	return env
}

func (env *testEnv) addUser(u models.User) {
	env.users.users[u.ID] = u
}

// internal/supervisor/scanners.go
package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/emrekoca/taskwarden/internal/models"
)

// scanCounts accumulates one scanner's output.
type scanCounts struct {
	created  int
	pushSent int
}

func (c *scanCounts) add(r DispatchResult) {
	c.created += r.InApp
	c.pushSent += r.Push
}

// scanDueSoon flags active tasks whose due date falls within the due-soon
// window. Tasks due today are push-eligible; the rest are a plain in-app
// heads-up.
func (e *Engine) scanDueSoon(ctx context.Context, now time.Time) (scanCounts, error) {
	var counts scanCounts

	tasks, err := e.tasks.ListActiveDueBetween(ctx, now, now.Add(DueSoonWindow))
	if err != nil {
		return counts, fmt.Errorf("listing due-soon tasks: %w", err)
	}

	for _, t := range tasks {
		if !t.DueDate.Valid {
			continue
		}
		daysLeft := ceilDays(t.DueDate.Time.Sub(now))
		dueToday := daysLeft <= 1

		content := fmt.Sprintf("Task %q is due in %d days", t.Title, daysLeft)
		if dueToday {
			content = fmt.Sprintf("Task %q is due today", t.Title)
		}

		e.dispatch(ctx, now, &counts, Event{
			TaskID:      t.ID,
			TriggerType: models.TriggerDueSoon,
			Deliveries: []Delivery{{
				RecipientID:  t.OwnerID,
				Title:        "Task due soon",
				Content:      content,
				PushEligible: dueToday,
			}},
		})
	}

	return counts, nil
}

// scanOverdue flags active tasks due before the start of today. The first
// OverdueRepeatDays days remind daily (within the dedup window); after that
// only every OverdueRepeatDays-th overdue day fires, keeping long-overdue
// tasks on a cadence instead of daily spam. The owner's manager gets an
// escalated copy.
func (e *Engine) scanOverdue(ctx context.Context, now time.Time) (scanCounts, error) {
	var counts scanCounts

	today := startOfDay(now)
	tasks, err := e.tasks.ListActiveDueBefore(ctx, today)
	if err != nil {
		return counts, fmt.Errorf("listing overdue tasks: %w", err)
	}

	for _, t := range tasks {
		if !t.DueDate.Valid {
			continue
		}
		daysOverdue := ceilDays(today.Sub(t.DueDate.Time))
		if daysOverdue > OverdueRepeatDays && daysOverdue%OverdueRepeatDays != 0 {
			continue
		}

		deliveries := []Delivery{{
			RecipientID:  t.OwnerID,
			Title:        "Task overdue",
			Content:      fmt.Sprintf("Task %q is overdue by %d days", t.Title, daysOverdue),
			PushEligible: true,
		}}
		deliveries = e.withEscalation(ctx, deliveries, t, "Team member task overdue",
			func(ownerName string) string {
				return fmt.Sprintf("Task %q assigned to %s is overdue by %d days",
					t.Title, ownerName, daysOverdue)
			})

		e.dispatch(ctx, now, &counts, Event{
			TaskID:      t.ID,
			TriggerType: models.TriggerOverdue,
			Deliveries:  deliveries,
		})
	}

	return counts, nil
}

// scanStale nudges owners of not-started or in-progress tasks that have
// seen no progress update (or, failing that, no activity since creation)
// for longer than the threshold. In-app only: this is a soft reminder, not
// an alert.
func (e *Engine) scanStale(ctx context.Context, now time.Time) (scanCounts, error) {
	var counts scanCounts

	tasks, err := e.tasks.ListActiveByStatus(ctx,
		models.TaskStatusNotStarted, models.TaskStatusInProgress)
	if err != nil {
		return counts, fmt.Errorf("listing stale candidates: %w", err)
	}

	updates, err := e.tasks.LatestUpdates(ctx, taskIDs(tasks))
	if err != nil {
		return counts, fmt.Errorf("loading latest updates: %w", err)
	}

	cutoff := now.Add(-NoUpdateThreshold)
	for _, t := range tasks {
		lastActivity := t.CreatedAt
		if u, ok := updates[t.ID]; ok {
			lastActivity = u.CreatedAt
		}
		if lastActivity.After(cutoff) {
			continue
		}
		daysSinceUpdate := ceilDays(now.Sub(lastActivity))

		e.dispatch(ctx, now, &counts, Event{
			TaskID:      t.ID,
			TriggerType: models.TriggerNoUpdate,
			Deliveries: []Delivery{{
				RecipientID: t.OwnerID,
				Title:       "Task needs update",
				Content:     fmt.Sprintf("Task %q has not been updated for %d days", t.Title, daysSinceUpdate),
			}},
		})
	}

	return counts, nil
}

// scanBlocked flags tasks stuck in blocked status past the threshold,
// measured from the most recent transition into blocked (falling back to
// the task's own updated_at). Owner and manager both hear about it.
func (e *Engine) scanBlocked(ctx context.Context, now time.Time) (scanCounts, error) {
	var counts scanCounts

	tasks, err := e.tasks.ListActiveByStatus(ctx, models.TaskStatusBlocked)
	if err != nil {
		return counts, fmt.Errorf("listing blocked tasks: %w", err)
	}

	blockedUpdates, err := e.tasks.LatestStatusUpdates(ctx, taskIDs(tasks), models.TaskStatusBlocked)
	if err != nil {
		return counts, fmt.Errorf("loading blocked transitions: %w", err)
	}

	cutoff := now.Add(-BlockedThreshold)
	for _, t := range tasks {
		blockedSince := t.UpdatedAt
		var blocker string
		if u, ok := blockedUpdates[t.ID]; ok {
			blockedSince = u.CreatedAt
			if u.BlockerDescription.Valid {
				blocker = u.BlockerDescription.String
			}
		}
		if blockedSince.After(cutoff) {
			continue
		}
		daysBlocked := ceilDays(now.Sub(blockedSince))

		ownerContent := fmt.Sprintf("Task %q has been blocked for %d days", t.Title, daysBlocked)
		if blocker != "" {
			ownerContent += fmt.Sprintf(" (blocker: %s)", blocker)
		}

		deliveries := []Delivery{{
			RecipientID:  t.OwnerID,
			Title:        "Task blocked",
			Content:      ownerContent,
			PushEligible: true,
		}}
		deliveries = e.withEscalation(ctx, deliveries, t, "Team member task blocked",
			func(ownerName string) string {
				c := fmt.Sprintf("Task %q assigned to %s has been blocked for %d days",
					t.Title, ownerName, daysBlocked)
				if blocker != "" {
					c += fmt.Sprintf(" (blocker: %s)", blocker)
				}
				return c
			})

		e.dispatch(ctx, now, &counts, Event{
			TaskID:      t.ID,
			TriggerType: models.TriggerBlocked,
			Deliveries:  deliveries,
		})
	}

	return counts, nil
}

// dispatch sends one event, logging and absorbing per-task failures so the
// rest of the pass continues. Partial deliveries still count.
func (e *Engine) dispatch(ctx context.Context, now time.Time, counts *scanCounts, ev Event) {
	res, err := e.dispatcher.Dispatch(ctx, now, ev)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("task_id", ev.TaskID).
			Str("trigger", ev.TriggerType).
			Msg("dispatch failed")
	}
	counts.add(res)
}

// withEscalation appends the manager's copy of an event to deliveries.
// Escalated copies are always push-eligible. No manager is not an error;
// the owner's delivery goes out alone.
func (e *Engine) withEscalation(
	ctx context.Context,
	deliveries []Delivery,
	t models.Task,
	title string,
	contentFor func(ownerName string) string,
) []Delivery {
	owner, err := e.users.GetByID(ctx, t.OwnerID)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("task_id", t.ID).
			Str("owner_id", t.OwnerID).
			Msg("could not load owner for escalation")
		return deliveries
	}

	manager, err := e.resolver.ManagerFor(ctx, owner)
	if err != nil {
		e.logger.Warn().Err(err).
			Str("task_id", t.ID).
			Msg("manager resolution failed")
		return deliveries
	}
	if manager == nil {
		return deliveries
	}

	return append(deliveries, Delivery{
		RecipientID:  manager.ID,
		Title:        title,
		Content:      contentFor(owner.Name),
		PushEligible: true,
	})
}

func taskIDs(tasks []models.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// internal/supervisor/dispatcher.go
package supervisor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/emrekoca/taskwarden/internal/models"
	"github.com/emrekoca/taskwarden/pkg/wecom"
)

// Dispatcher turns candidate events into deliveries: an in-app notification
// per recipient, plus a push message for the push-eligible ones when the
// push channel is configured and the recipient is reachable. Dedup is
// checked once per (task, trigger, channel), so the owner copy and the
// manager escalation of the same trigger go out together or not at all.
type Dispatcher struct {
	notifications NotificationStore
	ledger        Ledger
	users         UserStore
	pusher        wecom.PushService
	appBaseURL    string
	logger        zerolog.Logger
}

func NewDispatcher(
	notifications NotificationStore,
	ledger Ledger,
	users UserStore,
	pusher wecom.PushService,
	appBaseURL string,
	logger zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		ledger:        ledger,
		users:         users,
		pusher:        pusher,
		appBaseURL:    appBaseURL,
		logger:        logger.With().Str("component", "dispatcher").Logger(),
	}
}

// DispatchResult counts what a single event actually produced.
type DispatchResult struct {
	InApp int
	Push  int
}

// Dispatch delivers one event. The result counts successful deliveries even
// when an error is also returned; push failures are logged and skipped,
// never propagated, so a later pass may retry the push channel alone.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time, ev Event) (DispatchResult, error) {
	var result DispatchResult
	cutoff := now.Add(-DedupWindow)

	sent, err := d.ledger.SentSince(ctx, ev.TaskID, ev.TriggerType, models.ChannelInApp, cutoff)
	if err != nil {
		return result, fmt.Errorf("checking in-app dedup: %w", err)
	}

	var firstErr error
	if !sent {
		for _, del := range ev.Deliveries {
			n := models.Notification{
				UserID:    del.RecipientID,
				Type:      ev.TriggerType,
				Title:     del.Title,
				Content:   del.Content,
				TaskID:    sql.NullString{String: ev.TaskID, Valid: true},
				CreatedAt: now,
			}
			if err := d.notifications.Create(ctx, n); err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("creating in-app notification: %w", err)
				}
				continue
			}
			result.InApp++
		}

		// Notifications are already delivered at this point, so a ledger
		// failure costs at most a duplicate on the next pass.
		if result.InApp > 0 {
			if err := d.ledger.Append(ctx, ev.TaskID, ev.TriggerType, models.ChannelInApp, now); err != nil {
				d.logger.Warn().Err(err).
					Str("task_id", ev.TaskID).
					Str("trigger", ev.TriggerType).
					Msg("failed to record in-app notification in ledger")
			}
		}
	}

	if d.pusher.IsConfigured() && ev.pushEligible() {
		result.Push = d.tryPush(ctx, now, ev, cutoff)
	}

	return result, firstErr
}

// tryPush sends the push-eligible deliveries of an event. All push errors
// are absorbed here; the pass must not stall on a flaky messaging API.
func (d *Dispatcher) tryPush(ctx context.Context, now time.Time, ev Event, cutoff time.Time) int {
	sent, err := d.ledger.SentSince(ctx, ev.TaskID, ev.TriggerType, models.ChannelPush, cutoff)
	if err != nil {
		d.logger.Warn().Err(err).
			Str("task_id", ev.TaskID).
			Str("trigger", ev.TriggerType).
			Msg("checking push dedup failed")
		return 0
	}
	if sent {
		return 0
	}

	pushed := 0
	for _, del := range ev.Deliveries {
		if !del.PushEligible {
			continue
		}

		recipient, err := d.users.GetByID(ctx, del.RecipientID)
		if err != nil {
			d.logger.Warn().Err(err).
				Str("task_id", ev.TaskID).
				Str("recipient", del.RecipientID).
				Msg("resolving push recipient failed")
			continue
		}
		if !recipient.WeComUserID.Valid || recipient.WeComUserID.String == "" {
			continue
		}

		card := wecom.Card{
			Title:       del.Title,
			Description: del.Content,
			URL:         fmt.Sprintf("%s/tasks/%s", d.appBaseURL, ev.TaskID),
		}
		if err := d.pusher.SendCard(ctx, recipient.WeComUserID.String, card); err != nil {
			d.logger.Warn().Err(err).
				Str("task_id", ev.TaskID).
				Str("trigger", ev.TriggerType).
				Str("recipient", del.RecipientID).
				Msg("push delivery failed")
			continue
		}
		pushed++
	}

	if pushed > 0 {
		if err := d.ledger.Append(ctx, ev.TaskID, ev.TriggerType, models.ChannelPush, now); err != nil {
			d.logger.Warn().Err(err).
				Str("task_id", ev.TaskID).
				Str("trigger", ev.TriggerType).
				Msg("failed to record push notification in ledger")
		}
	}
	return pushed
}

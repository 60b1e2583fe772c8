// internal/models/notification.go
package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Trigger type constants for string-based trigger handling
const (
	TriggerDueSoon  = "task_due_soon"
	TriggerOverdue  = "task_overdue"
	TriggerNoUpdate = "task_no_update"
	TriggerBlocked  = "task_blocked"
)

// Channel constants
const (
	ChannelInApp = "in_app"
	ChannelPush  = "push"
)

// Notification is the user-facing in-app record. The surrounding
// application owns its lifecycle after creation (read flag etc.).
type Notification struct {
	ID        string         `db:"id"`
	UserID    string         `db:"user_id"`
	Type      string         `db:"type"`
	Title     string         `db:"title"`
	Content   string         `db:"content"`
	TaskID    sql.NullString `db:"task_id"`
	IsRead    bool           `db:"is_read"`
	CreatedAt time.Time      `db:"created_at"`
}

// NotificationLog is one row of the append-only dedup ledger: the fact that
// a (task, trigger, channel) notification went out at SentAt.
type NotificationLog struct {
	ID          string    `db:"id"`
	TaskID      string    `db:"task_id"`
	TriggerType string    `db:"trigger_type"`
	Channel     string    `db:"channel"`
	SentAt      time.Time `db:"sent_at"`
}

// ParseTriggerType validates a trigger type string
func ParseTriggerType(trigger string) (string, error) {
	switch trigger {
	case TriggerDueSoon, TriggerOverdue, TriggerNoUpdate, TriggerBlocked:
		return trigger, nil
	default:
		return "", fmt.Errorf("unknown trigger type: %s", trigger)
	}
}

// ParseChannel validates a channel string
func ParseChannel(channel string) (string, error) {
	switch channel {
	case ChannelInApp, ChannelPush:
		return channel, nil
	default:
		return "", fmt.Errorf("unknown channel: %s", channel)
	}
}

// ValidTriggerTypes returns all valid trigger type strings
func ValidTriggerTypes() []string {
	return []string{TriggerDueSoon, TriggerOverdue, TriggerNoUpdate, TriggerBlocked}
}

// IsValidTriggerType checks if the trigger type string is valid
func IsValidTriggerType(trigger string) bool {
	_, err := ParseTriggerType(trigger)
	return err == nil
}

// IsValidChannel checks if the channel string is valid
func IsValidChannel(channel string) bool {
	_, err := ParseChannel(channel)
	return err == nil
}

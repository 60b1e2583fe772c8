// internal/repository/notification_log_repository.go
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NotificationLogRepository is the dedup ledger. Rows are append-only;
// retention is an external concern.
type NotificationLogRepository struct {
	db *sqlx.DB
}

func NewNotificationLogRepository(db *sqlx.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// SentSince reports whether a (task, trigger, channel) entry exists with
// sent_at at or after cutoff.
func (r *NotificationLogRepository) SentSince(ctx context.Context, taskID, triggerType, channel string, cutoff time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		r.db.Rebind(`SELECT COUNT(*) FROM notification_logs
		             WHERE task_id = ? AND trigger_type = ? AND channel = ?
		               AND sent_at >= ?`),
		taskID, triggerType, channel, cutoff.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("checking notification log for task %s: %w", taskID, err)
	}
	return count > 0, nil
}

// Append records a successful delivery.
func (r *NotificationLogRepository) Append(ctx context.Context, taskID, triggerType, channel string, sentAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO notification_logs
		             (id, task_id, trigger_type, channel, sent_at)
		             VALUES (?, ?, ?, ?, ?)`),
		uuid.New().String(), taskID, triggerType, channel, sentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending notification log for task %s: %w", taskID, err)
	}
	return nil
}

// internal/database/migrations.go
package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	sql     string
}

// migrations are applied in order; each one is recorded in schema_version.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id             VARCHAR(36) PRIMARY KEY,
	name           VARCHAR(255) NOT NULL,
	role           VARCHAR(32) NOT NULL DEFAULT 'member',
	department_id  VARCHAR(36),
	wecom_user_id  VARCHAR(128),
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          VARCHAR(36) PRIMARY KEY,
	title       VARCHAR(255) NOT NULL,
	owner_id    VARCHAR(36) NOT NULL REFERENCES users(id),
	status      VARCHAR(32) NOT NULL DEFAULT 'not_started',
	due_date    TIMESTAMP,
	deleted_at  TIMESTAMP,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks (due_date);

CREATE TABLE IF NOT EXISTS task_updates (
	id                   VARCHAR(36) PRIMARY KEY,
	task_id              VARCHAR(36) NOT NULL REFERENCES tasks(id),
	status               VARCHAR(32),
	blocker_description  TEXT,
	note                 TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_updates_task_created
	ON task_updates (task_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id          VARCHAR(36) PRIMARY KEY,
	user_id     VARCHAR(36) NOT NULL REFERENCES users(id),
	type        VARCHAR(32) NOT NULL,
	title       VARCHAR(255) NOT NULL,
	content     TEXT NOT NULL,
	task_id     VARCHAR(36),
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_read
	ON notifications (user_id, is_read);

CREATE TABLE IF NOT EXISTS notification_logs (
	id            VARCHAR(36) PRIMARY KEY,
	task_id       VARCHAR(36) NOT NULL,
	trigger_type  VARCHAR(32) NOT NULL,
	channel       VARCHAR(16) NOT NULL,
	sent_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notification_logs_dedup
	ON notification_logs (task_id, trigger_type, channel, sent_at);

CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	applied_at  TIMESTAMP NOT NULL
);
`,
	},
}

// Migrate checks the current schema version and applies any outstanding
// migrations in order.
func Migrate(db *sqlx.DB) error {
	currentVersion := 0

	var tableCount int
	err := db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
		if _, err := db.Exec(
			db.Rebind("INSERT INTO schema_version (version, applied_at) VALUES (?, NOW())"),
			m.version,
		); err != nil {
			return fmt.Errorf("recording migration v%d: %w", m.version, err)
		}
	}

	return nil
}

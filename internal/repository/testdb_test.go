// internal/repository/testdb_test.go
package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/emrekoca/taskwarden/internal/models"
)

// testSchema mirrors the Postgres migrations in sqlite-compatible DDL so
// repository queries run against a real database in tests.
const testSchema = `
CREATE TABLE users (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	role           TEXT NOT NULL DEFAULT 'member',
	department_id  TEXT,
	wecom_user_id  TEXT,
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE tasks (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	owner_id    TEXT NOT NULL REFERENCES users(id),
	status      TEXT NOT NULL DEFAULT 'not_started',
	due_date    TIMESTAMP,
	deleted_at  TIMESTAMP,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE task_updates (
	id                   TEXT PRIMARY KEY,
	task_id              TEXT NOT NULL REFERENCES tasks(id),
	status               TEXT,
	blocker_description  TEXT,
	note                 TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMP NOT NULL
);

CREATE TABLE notifications (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users(id),
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	content     TEXT NOT NULL,
	task_id     TEXT,
	is_read     BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE notification_logs (
	id            TEXT PRIMARY KEY,
	task_id       TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	channel       TEXT NOT NULL,
	sent_at       TIMESTAMP NOT NULL
);
`

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// In-memory sqlite lives and dies with a single connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	return db
}

func insertUser(t *testing.T, db *sqlx.DB, u models.User) {
	t.Helper()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		db.Rebind(`INSERT INTO users (id, name, role, department_id, wecom_user_id, created_at)
		           VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.Name, u.Role, u.DepartmentID, u.WeComUserID, u.CreatedAt.UTC(),
	)
	require.NoError(t, err)
}

func insertTask(t *testing.T, db *sqlx.DB, task models.Task) {
	t.Helper()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	_, err := db.Exec(
		db.Rebind(`INSERT INTO tasks (id, title, owner_id, status, due_date, deleted_at, created_at, updated_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		task.ID, task.Title, task.OwnerID, task.Status, normNullTime(task.DueDate),
		normNullTime(task.DeletedAt), task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
	)
	require.NoError(t, err)
}

func insertUpdate(t *testing.T, db *sqlx.DB, u models.TaskUpdate) {
	t.Helper()
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := db.Exec(
		db.Rebind(`INSERT INTO task_updates (id, task_id, status, blocker_description, note, created_at)
		           VALUES (?, ?, ?, ?, ?, ?)`),
		u.ID, u.TaskID, u.Status, u.BlockerDescription, u.Note, u.CreatedAt.UTC(),
	)
	require.NoError(t, err)
}

// normNullTime keeps stored timestamps in UTC so range comparisons behave
// the same under sqlite as under Postgres.
func normNullTime(v sql.NullTime) interface{} {
	if !v.Valid {
		return nil
	}
	return v.Time.UTC()
}

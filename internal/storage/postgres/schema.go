package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema for the local mirror plus user-local annotations. Groups, planners,
// buckets, and tasks are upserted by the sync orchestrator keyed by their
// upstream identifiers; is_favorite and the notifications table are owned by
// the HTTP layer and survive sync passes.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL DEFAULT '',
    email           TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    group_type      TEXT NOT NULL DEFAULT '',
    visibility      TEXT NOT NULL DEFAULT '',
    created_date    TIMESTAMPTZ,
    last_sync       TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    is_favorite     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS planners (
    id              TEXT PRIMARY KEY,
    group_id        TEXT REFERENCES groups(id) ON DELETE CASCADE,
    title           TEXT NOT NULL DEFAULT '',
    owner           TEXT NOT NULL DEFAULT '',
    created_date    TIMESTAMPTZ,
    last_sync       TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_archived     BOOLEAN NOT NULL DEFAULT FALSE,
    is_favorite     BOOLEAN NOT NULL DEFAULT FALSE,
    total_tasks     INTEGER NOT NULL DEFAULT 0,
    completed_tasks INTEGER NOT NULL DEFAULT 0,
    in_progress_tasks INTEGER NOT NULL DEFAULT 0,
    not_started_tasks INTEGER NOT NULL DEFAULT 0,
    overdue_tasks   INTEGER NOT NULL DEFAULT 0,
    blocked_tasks   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS buckets (
    id              TEXT PRIMARY KEY,
    planner_id      TEXT REFERENCES planners(id) ON DELETE CASCADE,
    name            TEXT NOT NULL DEFAULT '',
    order_hint      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS tasks (
    id              TEXT PRIMARY KEY,
    planner_id      TEXT REFERENCES planners(id) ON DELETE CASCADE,
    bucket_id       TEXT,
    title           TEXT NOT NULL DEFAULT '',
    description     TEXT NOT NULL DEFAULT '',
    percent_complete INTEGER NOT NULL DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'not_started',
    priority        TEXT NOT NULL DEFAULT 'medium',
    is_overdue      BOOLEAN NOT NULL DEFAULT FALSE,
    is_blocked      BOOLEAN NOT NULL DEFAULT FALSE,
    start_date      TIMESTAMPTZ,
    due_date        TIMESTAMPTZ,
    completed_date  TIMESTAMPTZ,
    created_date    TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_modified   TIMESTAMPTZ NOT NULL DEFAULT now(),
    labels          JSONB NOT NULL DEFAULT '[]',
    assignees       JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_tasks_planner ON tasks (planner_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks (due_date);

CREATE TABLE IF NOT EXISTS notifications (
    id              UUID PRIMARY KEY,
    title           TEXT NOT NULL DEFAULT '',
    message         TEXT NOT NULL DEFAULT '',
    notification_type TEXT NOT NULL DEFAULT 'info',
    is_read         BOOLEAN NOT NULL DEFAULT FALSE,
    read_at         TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    action_url      TEXT NOT NULL DEFAULT '',
    action_text     TEXT NOT NULL DEFAULT '',
    entity_type     TEXT NOT NULL DEFAULT '',
    entity_id       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications (is_read, created_at DESC);
`

// Migrate creates the mirror tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

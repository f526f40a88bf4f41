package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo provides persistence for notifications.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	const q = `
INSERT INTO notifications (id, title, message, notification_type, action_url, action_text, entity_type, entity_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, q,
		n.ID, n.Title, n.Message, n.Type, n.ActionURL, n.ActionText, n.EntityType, n.EntityID)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ExistsRecent reports whether a notification of the given type already
// exists for an entity inside the window. Keeps scheduled scans from
// re-raising the same alert every cycle.
func (r *Repo) ExistsRecent(ctx context.Context, typ Type, entityID string, window time.Duration) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1 FROM notifications
    WHERE notification_type = $1 AND entity_id = $2 AND created_at > now() - make_interval(secs => $3)
);
`
	var exists bool
	err := r.pool.QueryRow(ctx, q, typ, entityID, window.Seconds()).Scan(&exists)
	return exists, err
}

func (r *Repo) CountUnread(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE NOT is_read;`).Scan(&count)
	return count, err
}

const notifCols = `id, title, message, notification_type, is_read, read_at, created_at,
action_url, action_text, entity_type, entity_id`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.ReadAt, &n.CreatedAt,
		&n.ActionURL, &n.ActionText, &n.EntityType, &n.EntityID)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListUnread returns the newest unread notifications, up to limit.
func (r *Repo) ListUnread(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 10
	}
	q := `SELECT ` + notifCols + ` FROM notifications WHERE NOT is_read ORDER BY created_at DESC LIMIT $1;`

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// List returns one page of notifications, newest first.
func (r *Repo) List(ctx context.Context, page, perPage int, unreadOnly bool) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	where := ""
	if unreadOnly {
		where = " WHERE NOT is_read"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM notifications"+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := "SELECT " + notifCols + " FROM notifications" + where +
		" ORDER BY created_at DESC LIMIT $1 OFFSET $2;"
	rows, err := r.pool.Query(ctx, q, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Notification, 0, perPage)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

// MarkRead marks one notification read. Idempotent for already-read rows.
func (r *Repo) MarkRead(ctx context.Context, id uuid.UUID) error {
	const q = `
UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, now())
WHERE id = $1
RETURNING id;
`
	var got uuid.UUID
	err := r.pool.QueryRow(ctx, q, id).Scan(&got)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) MarkAllRead(ctx context.Context) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE, read_at = now() WHERE NOT is_read;`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

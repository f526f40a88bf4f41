package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// Store provides persistence for the local mirror. All sync-side writers use
// upsert semantics keyed by the upstream identifier, so re-running a sync
// pass with unchanged upstream data never grows the row count.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertGroup creates or refreshes a group row. is_favorite is deliberately
// absent from the UPDATE list: it is a user-local annotation.
func (s *Store) UpsertGroup(ctx context.Context, g *domain.Group) error {
	const q = `
INSERT INTO groups (id, name, email, description, group_type, visibility, created_date, last_sync, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, now(), TRUE)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    email = EXCLUDED.email,
    description = EXCLUDED.description,
    group_type = EXCLUDED.group_type,
    visibility = EXCLUDED.visibility,
    created_date = COALESCE(EXCLUDED.created_date, groups.created_date),
    last_sync = now(),
    is_active = TRUE;
`
	_, err := s.pool.Exec(ctx, q,
		g.ID, g.Name, g.Email, g.Description, g.GroupType, g.Visibility, g.CreatedDate)
	if err != nil {
		return fmt.Errorf("upsert group %s: %w", g.ID, err)
	}
	return nil
}

// ListGroups returns active groups with planner/task rollups.
func (s *Store) ListGroups(ctx context.Context) ([]domain.Group, error) {
	const q = `
SELECT g.id, g.name, g.email, g.description, g.group_type, g.visibility,
       g.created_date, g.last_sync, g.is_active, g.is_favorite,
       COUNT(DISTINCT p.id),
       COALESCE(SUM(p.total_tasks), 0),
       COALESCE(SUM(p.total_tasks - p.completed_tasks), 0)
FROM groups g
LEFT JOIN planners p ON p.group_id = g.id
WHERE g.is_active
GROUP BY g.id
ORDER BY g.name;
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Group, 0, 16)
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Email, &g.Description, &g.GroupType, &g.Visibility,
			&g.CreatedDate, &g.LastSync, &g.IsActive, &g.IsFavorite,
			&g.TotalPlanners, &g.TotalTasks, &g.ActiveTasks); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GroupIDs returns the IDs of all active groups.
func (s *Store) GroupIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM groups WHERE is_active ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertPlanner creates or refreshes a planner row without touching the
// favorite annotation or the derived task counters.
func (s *Store) UpsertPlanner(ctx context.Context, p *domain.Planner) error {
	const q = `
INSERT INTO planners (id, group_id, title, owner, created_date, last_sync)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO UPDATE SET
    group_id = EXCLUDED.group_id,
    title = EXCLUDED.title,
    owner = EXCLUDED.owner,
    created_date = COALESCE(EXCLUDED.created_date, planners.created_date),
    last_sync = now();
`
	_, err := s.pool.Exec(ctx, q, p.ID, p.GroupID, p.Title, p.Owner, p.CreatedDate)
	if err != nil {
		return fmt.Errorf("upsert planner %s: %w", p.ID, err)
	}
	return nil
}

const plannerCols = `
p.id, p.group_id, COALESCE(g.name, ''), p.title, p.owner, p.created_date, p.last_sync,
p.is_archived, p.is_favorite,
p.total_tasks, p.completed_tasks, p.in_progress_tasks, p.not_started_tasks,
p.overdue_tasks, p.blocked_tasks`

func scanPlanner(row pgx.Row) (*domain.Planner, error) {
	var p domain.Planner
	err := row.Scan(&p.ID, &p.GroupID, &p.GroupName, &p.Title, &p.Owner, &p.CreatedDate, &p.LastSync,
		&p.IsArchived, &p.IsFavorite,
		&p.TotalTasks, &p.CompletedTasks, &p.InProgressTasks, &p.NotStartedTasks,
		&p.OverdueTasks, &p.BlockedTasks)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPlanners(ctx context.Context) ([]domain.Planner, error) {
	q := `SELECT ` + plannerCols + `
FROM planners p LEFT JOIN groups g ON g.id = p.group_id
ORDER BY p.title;`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Planner, 0, 16)
	for rows.Next() {
		p, err := scanPlanner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) GetPlanner(ctx context.Context, id string) (*domain.Planner, error) {
	q := `SELECT ` + plannerCols + `
FROM planners p LEFT JOIN groups g ON g.id = p.group_id
WHERE p.id = $1;`

	p, err := scanPlanner(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlannerNotFound
		}
		return nil, err
	}
	return p, nil
}

// SetFavorite persists the favorite annotation and returns the stored value,
// which the client renders instead of its optimistic guess.
func (s *Store) SetFavorite(ctx context.Context, plannerID string, favorite bool) (bool, error) {
	const q = `
UPDATE planners SET is_favorite = $2 WHERE id = $1
RETURNING is_favorite;
`
	var stored bool
	err := s.pool.QueryRow(ctx, q, plannerID, favorite).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrPlannerNotFound
		}
		return false, err
	}
	return stored, nil
}

func (s *Store) UpsertBucket(ctx context.Context, b *domain.Bucket) error {
	const q = `
INSERT INTO buckets (id, planner_id, name, order_hint)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    planner_id = EXCLUDED.planner_id,
    name = EXCLUDED.name,
    order_hint = EXCLUDED.order_hint;
`
	_, err := s.pool.Exec(ctx, q, b.ID, b.PlannerID, b.Name, b.OrderHint)
	if err != nil {
		return fmt.Errorf("upsert bucket %s: %w", b.ID, err)
	}
	return nil
}

// RecomputePlannerMetrics rederives all task counters for a planner from the
// tasks table. Runs once per planner on every sync pass so completion_rate
// stays consistent with the task set.
func (s *Store) RecomputePlannerMetrics(ctx context.Context, plannerID string) error {
	const q = `
UPDATE planners p SET
    total_tasks = agg.total,
    completed_tasks = agg.completed,
    in_progress_tasks = agg.in_progress,
    not_started_tasks = agg.not_started,
    overdue_tasks = agg.overdue,
    blocked_tasks = agg.blocked
FROM (
    SELECT
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'completed') AS completed,
        COUNT(*) FILTER (WHERE status = 'in_progress') AS in_progress,
        COUNT(*) FILTER (WHERE status = 'not_started') AS not_started,
        COUNT(*) FILTER (WHERE is_overdue) AS overdue,
        COUNT(*) FILTER (WHERE is_blocked) AS blocked
    FROM tasks WHERE planner_id = $1
) agg
WHERE p.id = $1;
`
	if _, err := s.pool.Exec(ctx, q, plannerID); err != nil {
		return fmt.Errorf("recompute metrics for planner %s: %w", plannerID, err)
	}
	return nil
}

// StatusStats returns per-status task counts for one planner.
func (s *Store) StatusStats(ctx context.Context, plannerID string) ([]domain.StatusCount, error) {
	const q = `
SELECT status, COUNT(*) FROM tasks
WHERE planner_id = $1
GROUP BY status ORDER BY status;
`
	rows, err := s.pool.Query(ctx, q, plannerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StatusCount, 0, 5)
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// PriorityStats returns per-priority task counts for one planner.
func (s *Store) PriorityStats(ctx context.Context, plannerID string) ([]domain.PriorityCount, error) {
	const q = `
SELECT priority, COUNT(*) FROM tasks
WHERE planner_id = $1
GROUP BY priority ORDER BY priority;
`
	rows, err := s.pool.Query(ctx, q, plannerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.PriorityCount, 0, 4)
	for rows.Next() {
		var pc domain.PriorityCount
		if err := rows.Scan(&pc.Priority, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

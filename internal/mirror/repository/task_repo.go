package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// UpsertTask creates or refreshes a task row keyed by the upstream task ID.
func (s *Store) UpsertTask(ctx context.Context, t *domain.Task) error {
	labels, err := json.Marshal(t.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	assignees, err := json.Marshal(t.Assignees)
	if err != nil {
		return fmt.Errorf("marshal assignees: %w", err)
	}

	const q = `
INSERT INTO tasks (id, planner_id, bucket_id, title, description, percent_complete,
                   status, priority, is_overdue, is_blocked,
                   start_date, due_date, completed_date, created_date, last_modified,
                   labels, assignees)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, now()), now(), $15, $16)
ON CONFLICT (id) DO UPDATE SET
    planner_id = EXCLUDED.planner_id,
    bucket_id = EXCLUDED.bucket_id,
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    percent_complete = EXCLUDED.percent_complete,
    status = EXCLUDED.status,
    priority = EXCLUDED.priority,
    is_overdue = EXCLUDED.is_overdue,
    is_blocked = EXCLUDED.is_blocked,
    start_date = EXCLUDED.start_date,
    due_date = EXCLUDED.due_date,
    completed_date = EXCLUDED.completed_date,
    last_modified = now(),
    labels = EXCLUDED.labels,
    assignees = EXCLUDED.assignees;
`
	var created any
	if !t.CreatedDate.IsZero() {
		created = t.CreatedDate
	}

	_, err = s.pool.Exec(ctx, q,
		t.ID, t.PlannerID, t.BucketID, t.Title, t.Description, t.PercentComplete,
		t.Status, t.Priority, t.IsOverdue, t.IsBlocked,
		t.StartDate, t.DueDate, t.CompletedDate, created,
		labels, assignees)
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return nil
}

const taskCols = `
t.id, t.planner_id, COALESCE(t.bucket_id, ''), t.title, t.description, t.percent_complete,
t.status, t.priority, t.is_overdue, t.is_blocked,
t.start_date, t.due_date, t.completed_date, t.created_date, t.last_modified,
t.labels, t.assignees,
COALESCE(p.title, ''), COALESCE(b.name, '')`

const taskFrom = `
FROM tasks t
LEFT JOIN planners p ON p.id = t.planner_id
LEFT JOIN buckets b ON b.id = t.bucket_id`

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var labels, assignees []byte
	err := row.Scan(&t.ID, &t.PlannerID, &t.BucketID, &t.Title, &t.Description, &t.PercentComplete,
		&t.Status, &t.Priority, &t.IsOverdue, &t.IsBlocked,
		&t.StartDate, &t.DueDate, &t.CompletedDate, &t.CreatedDate, &t.LastModified,
		&labels, &assignees,
		&t.PlannerTitle, &t.BucketName)
	if err != nil {
		return nil, err
	}
	if len(labels) > 0 {
		_ = json.Unmarshal(labels, &t.Labels)
	}
	if len(assignees) > 0 {
		_ = json.Unmarshal(assignees, &t.Assignees)
	}
	return &t, nil
}

// buildTaskWhere translates a TaskFilter into a WHERE clause with positional
// parameters. Empty filter values are omitted.
func buildTaskWhere(f domain.TaskFilter) (string, []any) {
	conds := make([]string, 0, 8)
	args := make([]any, 0, 8)

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PlannerID != "" {
		add("t.planner_id = $%d", f.PlannerID)
	}
	if f.GroupID != "" {
		add("p.group_id = $%d", f.GroupID)
	}
	if f.Status != "" {
		add("t.status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("t.priority = $%d", f.Priority)
	}
	if f.AssigneeID != "" {
		add(`t.assignees @> $%d`, fmt.Sprintf(`[{"id":%q}]`, f.AssigneeID))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(t.title ILIKE $%d OR t.description ILIKE $%d)", n, n))
	}
	if f.OverdueOnly {
		conds = append(conds, "t.is_overdue")
	}
	if f.DueAfter != nil {
		add("t.due_date >= $%d", *f.DueAfter)
	}
	if f.DueBefore != nil {
		add("t.due_date <= $%d", *f.DueBefore)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTasks returns one page of tasks matching the filter, newest first.
func (s *Store) ListTasks(ctx context.Context, f domain.TaskFilter, page, perPage int) ([]domain.Task, domain.Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	where, args := buildTaskWhere(f)

	var total int
	countQ := "SELECT COUNT(*) " + taskFrom + where
	if err := s.pool.QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, domain.Page{}, err
	}

	listQ := fmt.Sprintf("SELECT %s %s%s ORDER BY t.last_modified DESC LIMIT $%d OFFSET $%d",
		taskCols, taskFrom, where, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := s.pool.Query(ctx, listQ, args...)
	if err != nil {
		return nil, domain.Page{}, err
	}
	defer rows.Close()

	out := make([]domain.Task, 0, perPage)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, domain.Page{}, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Page{}, err
	}

	pages := (total + perPage - 1) / perPage
	return out, domain.Page{Page: page, PerPage: perPage, Total: total, Pages: pages}, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	q := "SELECT " + taskCols + " " + taskFrom + " WHERE t.id = $1"
	t, err := scanTask(s.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// TasksDueWithin returns uncompleted tasks whose due date falls inside the
// window starting now. Used by the due-soon notification scan.
func (s *Store) TasksDueWithin(ctx context.Context, hours int) ([]domain.Task, error) {
	q := "SELECT " + taskCols + " " + taskFrom + `
WHERE t.status <> 'completed'
  AND t.due_date IS NOT NULL
  AND t.due_date > now()
  AND t.due_date <= now() + make_interval(hours => $1)
ORDER BY t.due_date;`

	rows, err := s.pool.Query(ctx, q, hours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// OverdueTasks returns tasks flagged overdue and not completed.
func (s *Store) OverdueTasks(ctx context.Context) ([]domain.Task, error) {
	q := "SELECT " + taskCols + " " + taskFrom + `
WHERE t.is_overdue AND t.status <> 'completed'
ORDER BY t.due_date;`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// TasksForExport returns every task matching the filter, without pagination,
// ordered stably for report output.
func (s *Store) TasksForExport(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	where, args := buildTaskWhere(f)
	q := "SELECT " + taskCols + " " + taskFrom + where + " ORDER BY p.title, t.due_date NULLS LAST, t.title"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

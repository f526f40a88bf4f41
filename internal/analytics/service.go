package analytics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// KPIs are the headline numbers on the dashboard.
type KPIs struct {
	TotalTasks      int     `json:"total_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	InProgressTasks int     `json:"in_progress_tasks"`
	OverdueTasks    int     `json:"overdue_tasks"`
	CompletionRate  float64 `json:"completion_rate"`
	TotalPlanners   int     `json:"total_planners"`
	TotalGroups     int     `json:"total_groups"`
}

// RecentTask is one row of the recently-modified list.
type RecentTask struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Priority     string `json:"priority"`
	DueDate      any    `json:"due_date,omitempty"`
	PlannerTitle string `json:"planner"`
	LastModified any    `json:"last_modified"`
}

// BusyPlanner is one of the planners with the most tasks.
type BusyPlanner struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	TaskCount      int     `json:"task_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// Service computes dashboard aggregates straight from the mirror tables.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func (s *Service) GetKPIs(ctx context.Context) (*KPIs, error) {
	const q = `
SELECT
    (SELECT COUNT(*) FROM tasks),
    (SELECT COUNT(*) FROM tasks WHERE status = 'completed'),
    (SELECT COUNT(*) FROM tasks WHERE status = 'in_progress'),
    (SELECT COUNT(*) FROM tasks WHERE is_overdue),
    (SELECT COUNT(*) FROM planners),
    (SELECT COUNT(*) FROM groups WHERE is_active);
`
	var k KPIs
	err := s.pool.QueryRow(ctx, q).Scan(
		&k.TotalTasks, &k.CompletedTasks, &k.InProgressTasks, &k.OverdueTasks,
		&k.TotalPlanners, &k.TotalGroups)
	if err != nil {
		return nil, fmt.Errorf("load kpis: %w", err)
	}

	if k.TotalTasks > 0 {
		k.CompletionRate = float64(k.CompletedTasks) / float64(k.TotalTasks) * 100
	}
	return &k, nil
}

func (s *Service) RecentTasks(ctx context.Context, limit int) ([]RecentTask, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `
SELECT t.id, t.title, t.status, t.priority, t.due_date, COALESCE(p.title, ''), t.last_modified
FROM tasks t LEFT JOIN planners p ON p.id = t.planner_id
ORDER BY t.last_modified DESC
LIMIT $1;
`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RecentTask, 0, limit)
	for rows.Next() {
		var rt RecentTask
		if err := rows.Scan(&rt.ID, &rt.Title, &rt.Status, &rt.Priority, &rt.DueDate, &rt.PlannerTitle, &rt.LastModified); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (s *Service) BusyPlanners(ctx context.Context, limit int) ([]BusyPlanner, error) {
	if limit <= 0 {
		limit = 5
	}
	const q = `
SELECT p.id, p.title, p.total_tasks,
       CASE WHEN p.total_tasks > 0
            THEN p.completed_tasks::float / p.total_tasks * 100
            ELSE 0 END
FROM planners p
WHERE p.total_tasks > 0
ORDER BY p.total_tasks DESC
LIMIT $1;
`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BusyPlanner, 0, limit)
	for rows.Next() {
		var bp BusyPlanner
		if err := rows.Scan(&bp.ID, &bp.Title, &bp.TaskCount, &bp.CompletionRate); err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

package repository

import (
	"context"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// SearchHit is one global-search result row.
type SearchHit struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Type    string            `json:"type"`
	Context string            `json:"context,omitempty"`
	Status  domain.TaskStatus `json:"status,omitempty"`
}

// SearchResults groups global-search hits by entity kind.
type SearchResults struct {
	Tasks    []SearchHit `json:"tasks"`
	Planners []SearchHit `json:"planners"`
	Groups   []SearchHit `json:"groups"`
}

// Search scans tasks, planners, and groups for a case-insensitive substring
// match, ten hits per kind.
func (s *Store) Search(ctx context.Context, query string) (*SearchResults, error) {
	res := &SearchResults{
		Tasks:    []SearchHit{},
		Planners: []SearchHit{},
		Groups:   []SearchHit{},
	}
	like := "%" + query + "%"

	const taskQ = `
SELECT t.id, t.title, t.status, COALESCE(p.title, '')
FROM tasks t LEFT JOIN planners p ON p.id = t.planner_id
WHERE t.title ILIKE $1 OR t.description ILIKE $1
LIMIT 10;`
	rows, err := s.pool.Query(ctx, taskQ, like)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		h := SearchHit{Type: "task"}
		if err := rows.Scan(&h.ID, &h.Title, &h.Status, &h.Context); err != nil {
			rows.Close()
			return nil, err
		}
		res.Tasks = append(res.Tasks, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const plannerQ = `
SELECT p.id, p.title, COALESCE(g.name, '')
FROM planners p LEFT JOIN groups g ON g.id = p.group_id
WHERE p.title ILIKE $1
LIMIT 10;`
	rows, err = s.pool.Query(ctx, plannerQ, like)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		h := SearchHit{Type: "planner"}
		if err := rows.Scan(&h.ID, &h.Title, &h.Context); err != nil {
			rows.Close()
			return nil, err
		}
		res.Planners = append(res.Planners, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const groupQ = `SELECT id, name FROM groups WHERE name ILIKE $1 AND is_active LIMIT 10;`
	rows, err = s.pool.Query(ctx, groupQ, like)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		h := SearchHit{Type: "group"}
		if err := rows.Scan(&h.ID, &h.Title); err != nil {
			rows.Close()
			return nil, err
		}
		res.Groups = append(res.Groups, h)
	}
	rows.Close()
	return res, rows.Err()
}

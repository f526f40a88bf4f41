package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// TaskSource is the slice of the mirror store the scanner reads.
type TaskSource interface {
	TasksDueWithin(ctx context.Context, hours int) ([]domain.Task, error)
	OverdueTasks(ctx context.Context) ([]domain.Task, error)
}

// NotificationStore is the write side the scanner uses.
type NotificationStore interface {
	Create(ctx context.Context, n *Notification) error
	ExistsRecent(ctx context.Context, typ Type, entityID string, window time.Duration) (bool, error)
}

// Scanner raises due-soon and overdue notifications from the mirrored task
// set. It runs after each sync pass and on the worker's fixed cadence; the
// dedup window keeps repeated scans from re-raising the same alert.
type Scanner struct {
	tasks        TaskSource
	store        NotificationStore
	dueSoonHours int
	dedupWindow  time.Duration
}

func NewScanner(tasks TaskSource, store NotificationStore, dueSoonHours int) *Scanner {
	if dueSoonHours <= 0 {
		dueSoonHours = 24
	}
	return &Scanner{
		tasks:        tasks,
		store:        store,
		dueSoonHours: dueSoonHours,
		dedupWindow:  24 * time.Hour,
	}
}

func (s *Scanner) Scan(ctx context.Context) error {
	if err := s.scanDueSoon(ctx); err != nil {
		return err
	}
	return s.scanOverdue(ctx)
}

func (s *Scanner) scanDueSoon(ctx context.Context) error {
	tasks, err := s.tasks.TasksDueWithin(ctx, s.dueSoonHours)
	if err != nil {
		return fmt.Errorf("list due-soon tasks: %w", err)
	}

	created := 0
	for _, t := range tasks {
		ok, err := s.raise(ctx, &Notification{
			Title:      "Task due soon",
			Message:    fmt.Sprintf("Task %q is due within %dh", t.Title, s.dueSoonHours),
			Type:       TypeWarning,
			ActionURL:  "/tasks/" + t.ID,
			ActionText: "View task",
			EntityType: "task",
			EntityID:   t.ID,
		})
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		log.Printf("[info] notification scan: %d due-soon alerts raised", created)
	}
	return nil
}

func (s *Scanner) scanOverdue(ctx context.Context) error {
	tasks, err := s.tasks.OverdueTasks(ctx)
	if err != nil {
		return fmt.Errorf("list overdue tasks: %w", err)
	}

	created := 0
	for _, t := range tasks {
		ok, err := s.raise(ctx, &Notification{
			Title:      "Task overdue",
			Message:    fmt.Sprintf("Task %q is overdue", t.Title),
			Type:       TypeTaskOverdue,
			ActionURL:  "/tasks/" + t.ID,
			ActionText: "View task",
			EntityType: "task",
			EntityID:   t.ID,
		})
		if err != nil {
			return err
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		log.Printf("[info] notification scan: %d overdue alerts raised", created)
	}
	return nil
}

// raise creates the notification unless an equivalent one exists inside the
// dedup window. Reports whether a row was created.
func (s *Scanner) raise(ctx context.Context, n *Notification) (bool, error) {
	exists, err := s.store.ExistsRecent(ctx, n.Type, n.EntityID, s.dedupWindow)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := s.store.Create(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}

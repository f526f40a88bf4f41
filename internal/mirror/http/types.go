package http

import (
	"context"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
	"github.com/plannerdash/go-planner-backend/internal/mirror/repository"
)

// Store is the slice of the mirror repository the browsing endpoints need.
type Store interface {
	ListTasks(ctx context.Context, f domain.TaskFilter, page, perPage int) ([]domain.Task, domain.Page, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListPlanners(ctx context.Context) ([]domain.Planner, error)
	GetPlanner(ctx context.Context, id string) (*domain.Planner, error)
	SetFavorite(ctx context.Context, plannerID string, favorite bool) (bool, error)
	StatusStats(ctx context.Context, plannerID string) ([]domain.StatusCount, error)
	PriorityStats(ctx context.Context, plannerID string) ([]domain.PriorityCount, error)
	ListGroups(ctx context.Context) ([]domain.Group, error)
	Search(ctx context.Context, query string) (*repository.SearchResults, error)
}

// Handler bundles the dependencies for mirror browsing endpoints.
type Handler struct {
	store Store
}

func New(store Store) *Handler {
	return &Handler{store: store}
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/plannerdash/go-planner-backend/config"
	"github.com/plannerdash/go-planner-backend/internal/bootstrap"
	"github.com/plannerdash/go-planner-backend/internal/graph"
	"github.com/plannerdash/go-planner-backend/internal/mirror/repository"
	"github.com/plannerdash/go-planner-backend/internal/notifications"
	"github.com/plannerdash/go-planner-backend/internal/sched"
	"github.com/plannerdash/go-planner-backend/internal/storage/postgres"
	syncpkg "github.com/plannerdash/go-planner-backend/internal/sync"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[error] config: %v", err)
	}

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{
		DSN:      cfg.Database.DSN,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatalf("[error] database: %v", err)
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("[error] migrate: %v", err)
	}

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("[error] redis: %v", err)
	}
	defer rdb.Close()

	store := repository.NewStore(pool)
	notifRepo := notifications.NewRepo(pool)
	scanner := notifications.NewScanner(store, notifRepo, cfg.Notifications.DueSoonHours)

	guard := syncpkg.NewRedisGuard(rdb, cfg.Sync.LockTTL)
	orch := syncpkg.NewOrchestrator(graph.NewClient(cfg.Graph), store, guard, scanner, syncpkg.Options{
		Timeout:         cfg.Sync.Timeout,
		MaxGroups:       cfg.Sync.MaxGroups,
		MaxTasksPerPlan: cfg.Sync.MaxTasksPerPlan,
	})

	scheduler := sched.NewScheduler(orch, scanner, cfg.Sync.Interval, cfg.Notifications.CheckInterval)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("[error] scheduler: %v", err)
	}

	<-ctx.Done()
	log.Println("[info] worker shutting down")
	scheduler.Stop()
}

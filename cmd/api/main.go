package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/plannerdash/go-planner-backend/config"
	"github.com/plannerdash/go-planner-backend/internal/bootstrap"
	"github.com/plannerdash/go-planner-backend/internal/graph"
	"github.com/plannerdash/go-planner-backend/internal/mirror/repository"
	"github.com/plannerdash/go-planner-backend/internal/notifications"
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
	bootstrap.SetGinMode(cfg.App.Environment)

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

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "planner-backend",
		Version:     cfg.App.Version,
		Config:      cfg,
		DB:          pool,
		Redis:       rdb,
		SyncRunner:  orch,
		SyncStatus:  guard,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[info] planner-backend listening on :%s (env=%s)", cfg.Server.Port, cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[error] server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[info] shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("[warn] shutdown: %v", err)
	}
}

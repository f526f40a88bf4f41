package sched

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plannerdash/go-planner-backend/internal/sync"
)

// NotificationScanner re-evaluates mirrored tasks for due-soon and
// overdue conditions.
type NotificationScanner interface {
	Scan(ctx context.Context) error
}

// Scheduler drives the periodic sync pass and notification scan.
type Scheduler struct {
	runner    sync.Runner
	scanner   NotificationScanner
	syncEvery time.Duration
	scanEvery time.Duration
	cron      *cron.Cron
}

func NewScheduler(runner sync.Runner, scanner NotificationScanner, syncEvery, scanEvery time.Duration) *Scheduler {
	return &Scheduler{
		runner:    runner,
		scanner:   scanner,
		syncEvery: syncEvery,
		scanEvery: scanEvery,
	}
}

// Start registers the jobs and starts the cron loop. It does not block.
func (s *Scheduler) Start(ctx context.Context) error {
	c := cron.New()

	if _, err := c.AddFunc("@every "+s.syncEvery.String(), func() {
		s.runSync(ctx)
	}); err != nil {
		return err
	}
	if _, err := c.AddFunc("@every "+s.scanEvery.String(), func() {
		s.runScan(ctx)
	}); err != nil {
		return err
	}

	log.Printf("[info] scheduler started (sync every %s, notification scan every %s)", s.syncEvery, s.scanEvery)
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSync(ctx context.Context) {
	res, err := s.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			log.Println("[warn] scheduled sync skipped: previous pass still running")
			return
		}
		log.Printf("[error] scheduled sync failed: %v", err)
		return
	}
	log.Printf("[info] scheduled sync finished: groups=%d planners=%d tasks=%d errors=%d",
		res.Stats.Groups, res.Stats.Planners, res.Stats.Tasks, res.Stats.Errors)
}

func (s *Scheduler) runScan(ctx context.Context) {
	if err := s.scanner.Scan(ctx); err != nil {
		log.Printf("[error] notification scan failed: %v", err)
	}
}

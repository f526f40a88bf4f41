package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/plannerdash/go-planner-backend/internal/graph"
	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// Upstream is the slice of the Graph client the orchestrator needs.
type Upstream interface {
	ListGroups(ctx context.Context, limit int) ([]graph.Group, error)
	ListPlans(ctx context.Context, groupID string) ([]graph.Plan, error)
	ListBuckets(ctx context.Context, planID string) ([]graph.Bucket, error)
	ListTasks(ctx context.Context, planID string, limit int) ([]graph.Task, error)
	GetUser(ctx context.Context, userID string) (*graph.User, error)
}

// MirrorStore is the write side of the local mirror. Implementations must
// use upsert semantics keyed by upstream IDs and must not touch user-local
// annotations (favorites, notification read state).
type MirrorStore interface {
	UpsertGroup(ctx context.Context, g *domain.Group) error
	UpsertPlanner(ctx context.Context, p *domain.Planner) error
	UpsertBucket(ctx context.Context, b *domain.Bucket) error
	UpsertTask(ctx context.Context, t *domain.Task) error
	RecomputePlannerMetrics(ctx context.Context, plannerID string) error
}

// Guard serializes sync passes across processes and records the last run.
type Guard interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	SetLastRun(ctx context.Context, res Result) error
}

// Scanner runs after a successful pass, e.g. to raise due-soon and overdue
// notifications from the freshly mirrored tasks.
type Scanner interface {
	Scan(ctx context.Context) error
}

type Options struct {
	Timeout         time.Duration
	MaxGroups       int
	MaxTasksPerPlan int
}

// Orchestrator reconciles the local mirror with the upstream provider.
type Orchestrator struct {
	upstream Upstream
	store    MirrorStore
	guard    Guard
	scanner  Scanner // optional
	opts     Options

	now func() time.Time
}

func NewOrchestrator(upstream Upstream, store MirrorStore, guard Guard, scanner Scanner, opts Options) *Orchestrator {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.MaxGroups == 0 {
		opts.MaxGroups = 100
	}
	if opts.MaxTasksPerPlan == 0 {
		opts.MaxTasksPerPlan = 1000
	}
	return &Orchestrator{
		upstream: upstream,
		store:    store,
		guard:    guard,
		scanner:  scanner,
		opts:     opts,
		now:      time.Now,
	}
}

// Run performs one full sync pass. At most one pass runs at a time; an
// overlapping trigger gets ErrSyncInProgress. Entity-level failures are
// counted and skipped, only a failure to reach the provider at all aborts
// the pass.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ok, err := o.guard.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := o.guard.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[warn] sync release lock: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	start := o.now()
	res, err := o.runPass(ctx)
	if err != nil {
		res = &Result{Success: false, Error: err.Error()}
	}

	if serr := o.guard.SetLastRun(context.WithoutCancel(ctx), *res); serr != nil {
		log.Printf("[warn] sync record last run: %v", serr)
	}

	if err != nil {
		return res, err
	}

	log.Printf("[info] sync pass finished in %s: groups=%d planners=%d tasks=%d errors=%d",
		time.Since(start).Round(time.Millisecond),
		res.Stats.Groups, res.Stats.Planners, res.Stats.Tasks, res.Stats.Errors)

	if o.scanner != nil {
		if serr := o.scanner.Scan(ctx); serr != nil {
			log.Printf("[warn] post-sync notification scan: %v", serr)
		}
	}

	return res, nil
}

func (o *Orchestrator) runPass(ctx context.Context) (*Result, error) {
	stats := Stats{}
	users := map[string]*graph.User{}

	groups, err := o.upstream.ListGroups(ctx, o.opts.MaxGroups)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	for _, g := range groups {
		if err := o.syncGroup(ctx, g, &stats, users); err != nil {
			// One bad group must not sink the whole pass.
			log.Printf("[error] sync group %s: %v", g.ID, err)
			stats.Errors++
		}
	}

	res := &Result{Success: true, Stats: stats, Message: "sync completed successfully"}
	if stats.Errors > 0 {
		res.Message = fmt.Sprintf("sync completed with %d errors", stats.Errors)
	}
	return res, nil
}

func (o *Orchestrator) syncGroup(ctx context.Context, g graph.Group, stats *Stats, users map[string]*graph.User) error {
	groupType := ""
	if len(g.GroupTypes) > 0 {
		groupType = g.GroupTypes[0]
	}

	err := o.store.UpsertGroup(ctx, &domain.Group{
		ID:          g.ID,
		Name:        g.DisplayName,
		Email:       g.Mail,
		Description: g.Description,
		GroupType:   groupType,
		Visibility:  g.Visibility,
		CreatedDate: graph.ParseGraphTime(g.CreatedDateTime),
	})
	if err != nil {
		return err
	}
	stats.Groups++

	plans, err := o.upstream.ListPlans(ctx, g.ID)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("list plans: %w", err)
	}

	for _, plan := range plans {
		if err := o.syncPlan(ctx, plan, g.ID, stats, users); err != nil {
			log.Printf("[error] sync planner %s: %v", plan.ID, err)
			stats.Errors++
		}
	}
	return nil
}

func (o *Orchestrator) syncPlan(ctx context.Context, plan graph.Plan, groupID string, stats *Stats, users map[string]*graph.User) error {
	err := o.store.UpsertPlanner(ctx, &domain.Planner{
		ID:          plan.ID,
		GroupID:     groupID,
		Title:       plan.Title,
		Owner:       plan.Owner,
		CreatedDate: graph.ParseGraphTime(plan.CreatedDateTime),
	})
	if err != nil {
		return err
	}
	stats.Planners++

	buckets, err := o.upstream.ListBuckets(ctx, plan.ID)
	if err != nil && !errors.Is(err, graph.ErrNotFound) {
		return fmt.Errorf("list buckets: %w", err)
	}
	for _, b := range buckets {
		if err := o.store.UpsertBucket(ctx, &domain.Bucket{
			ID:        b.ID,
			PlannerID: plan.ID,
			Name:      b.Name,
			OrderHint: b.OrderHint,
		}); err != nil {
			log.Printf("[error] sync bucket %s: %v", b.ID, err)
			stats.Errors++
		}
	}

	tasks, err := o.upstream.ListTasks(ctx, plan.ID, o.opts.MaxTasksPerPlan)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			tasks = nil
		} else {
			return fmt.Errorf("list tasks: %w", err)
		}
	}

	for _, t := range tasks {
		if err := o.store.UpsertTask(ctx, o.convertTask(ctx, t, plan.ID, stats, users)); err != nil {
			log.Printf("[error] sync task %s: %v", t.ID, err)
			stats.Errors++
			continue
		}
		stats.Tasks++
	}

	// Counters must reflect the task set after every pass.
	return o.store.RecomputePlannerMetrics(ctx, plan.ID)
}

// convertTask maps a Graph task onto the mirror model, deriving status and
// priority and enriching assignees from the directory. A user that was
// removed upstream (404) keeps a placeholder entry.
func (o *Orchestrator) convertTask(ctx context.Context, t graph.Task, planID string, stats *Stats, users map[string]*graph.User) *domain.Task {
	completed := graph.ParseGraphTime(t.CompletedDateTime)
	due := graph.ParseGraphTime(t.DueDateTime)
	status, overdue := domain.DeriveStatus(t.PercentComplete, completed, due, o.now())

	var labels []string
	for category, applied := range t.AppliedCategories {
		if applied {
			labels = append(labels, category)
		}
	}

	var assignees []domain.Assignee
	for userID := range t.Assignments {
		assignees = append(assignees, o.lookupAssignee(ctx, userID, stats, users))
	}

	created := time.Time{}
	if ts := graph.ParseGraphTime(t.CreatedDateTime); ts != nil {
		created = *ts
	}

	return &domain.Task{
		ID:              t.ID,
		PlannerID:       planID,
		BucketID:        t.BucketID,
		Title:           t.Title,
		PercentComplete: t.PercentComplete,
		Status:          status,
		Priority:        domain.PriorityFromGraph(t.Priority),
		IsOverdue:       overdue,
		StartDate:       graph.ParseGraphTime(t.StartDateTime),
		DueDate:         due,
		CompletedDate:   completed,
		CreatedDate:     created,
		Labels:          labels,
		Assignees:       assignees,
	}
}

func (o *Orchestrator) lookupAssignee(ctx context.Context, userID string, stats *Stats, users map[string]*graph.User) domain.Assignee {
	if u, seen := users[userID]; seen {
		if u == nil {
			return domain.Assignee{UserID: userID, DisplayName: "Removed user"}
		}
		return assigneeFromUser(userID, u)
	}

	u, err := o.upstream.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, graph.ErrNotFound) {
			log.Printf("[warn] sync lookup user %s: %v", userID, err)
		}
		users[userID] = nil
		return domain.Assignee{UserID: userID, DisplayName: "Removed user"}
	}

	users[userID] = u
	stats.UsersEnriched++
	return assigneeFromUser(userID, u)
}

func assigneeFromUser(userID string, u *graph.User) domain.Assignee {
	email := u.Mail
	if email == "" {
		email = u.UserPrincipalName
	}
	return domain.Assignee{UserID: userID, DisplayName: u.DisplayName, Email: email}
}

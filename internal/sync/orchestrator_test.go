package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerdash/go-planner-backend/internal/graph"
	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

type fakeUpstream struct {
	groups  []graph.Group
	plans   map[string][]graph.Plan
	buckets map[string][]graph.Bucket
	tasks   map[string][]graph.Task
	users   map[string]*graph.User

	groupsErr error
	plansErr  map[string]error
	tasksErr  map[string]error

	userCalls int
}

func (f *fakeUpstream) ListGroups(ctx context.Context, limit int) ([]graph.Group, error) {
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups, nil
}

func (f *fakeUpstream) ListPlans(ctx context.Context, groupID string) ([]graph.Plan, error) {
	if err := f.plansErr[groupID]; err != nil {
		return nil, err
	}
	return f.plans[groupID], nil
}

func (f *fakeUpstream) ListBuckets(ctx context.Context, planID string) ([]graph.Bucket, error) {
	return f.buckets[planID], nil
}

func (f *fakeUpstream) ListTasks(ctx context.Context, planID string, limit int) ([]graph.Task, error) {
	if err := f.tasksErr[planID]; err != nil {
		return nil, err
	}
	return f.tasks[planID], nil
}

func (f *fakeUpstream) GetUser(ctx context.Context, userID string) (*graph.User, error) {
	f.userCalls++
	u, ok := f.users[userID]
	if !ok {
		return nil, graph.ErrNotFound
	}
	return u, nil
}

type fakeStore struct {
	groups   map[string]*domain.Group
	planners map[string]*domain.Planner
	buckets  map[string]*domain.Bucket
	tasks    map[string]*domain.Task

	recomputed []string
	taskErr    map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:   map[string]*domain.Group{},
		planners: map[string]*domain.Planner{},
		buckets:  map[string]*domain.Bucket{},
		tasks:    map[string]*domain.Task{},
	}
}

func (f *fakeStore) UpsertGroup(ctx context.Context, g *domain.Group) error {
	f.groups[g.ID] = g
	return nil
}

func (f *fakeStore) UpsertPlanner(ctx context.Context, p *domain.Planner) error {
	// Mirror writes must never carry the favorite flag.
	if existing, ok := f.planners[p.ID]; ok {
		p.IsFavorite = existing.IsFavorite
	}
	f.planners[p.ID] = p
	return nil
}

func (f *fakeStore) UpsertBucket(ctx context.Context, b *domain.Bucket) error {
	f.buckets[b.ID] = b
	return nil
}

func (f *fakeStore) UpsertTask(ctx context.Context, t *domain.Task) error {
	if err := f.taskErr[t.ID]; err != nil {
		return err
	}
	f.tasks[t.ID] = t
	return nil
}

func (f *fakeStore) RecomputePlannerMetrics(ctx context.Context, plannerID string) error {
	f.recomputed = append(f.recomputed, plannerID)
	return nil
}

type fakeGuard struct {
	held     bool
	lastRun  *Result
	acquires int
	releases int
}

func (f *fakeGuard) Acquire(ctx context.Context) (bool, error) {
	f.acquires++
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeGuard) Release(ctx context.Context) error {
	f.releases++
	f.held = false
	return nil
}

func (f *fakeGuard) SetLastRun(ctx context.Context, res Result) error {
	f.lastRun = &res
	return nil
}

func fixtureUpstream() *fakeUpstream {
	return &fakeUpstream{
		groups: []graph.Group{
			{ID: "g1", DisplayName: "Engineering", GroupTypes: []string{"Unified"}},
		},
		plans: map[string][]graph.Plan{
			"g1": {{ID: "p1", Title: "Sprint Board", Owner: "g1"}},
		},
		buckets: map[string][]graph.Bucket{
			"p1": {{ID: "b1", PlanID: "p1", Name: "To do", OrderHint: "a"}},
		},
		tasks: map[string][]graph.Task{
			"p1": {
				{
					ID: "t1", PlanID: "p1", BucketID: "b1", Title: "Write report",
					PercentComplete: 50, Priority: 9,
					DueDateTime: "2099-01-01T00:00:00Z",
					Assignments: map[string]graph.Assignment{"u1": {}},
				},
			},
		},
		users: map[string]*graph.User{
			"u1": {ID: "u1", DisplayName: "Pat Lee", Mail: "pat@example.com"},
		},
	}
}

func TestRunMirrorsFullHierarchy(t *testing.T) {
	up := fixtureUpstream()
	store := newFakeStore()
	guard := &fakeGuard{}

	orch := NewOrchestrator(up, store, guard, nil, Options{})
	res, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, Stats{Groups: 1, Planners: 1, Tasks: 1, UsersEnriched: 1}, res.Stats)

	task := store.tasks["t1"]
	require.NotNil(t, task)
	assert.Equal(t, domain.StatusInProgress, task.Status)
	assert.Equal(t, domain.PriorityUrgent, task.Priority)
	require.Len(t, task.Assignees, 1)
	assert.Equal(t, "Pat Lee", task.Assignees[0].DisplayName)

	assert.Equal(t, []string{"p1"}, store.recomputed)
	assert.Equal(t, 1, guard.releases)
	require.NotNil(t, guard.lastRun)
	assert.True(t, guard.lastRun.Success)
}

func TestRunIsIdempotent(t *testing.T) {
	up := fixtureUpstream()
	store := newFakeStore()
	orch := NewOrchestrator(up, store, &fakeGuard{}, nil, Options{})

	first, err := orch.Run(context.Background())
	require.NoError(t, err)
	second, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Stats, second.Stats)
	assert.Len(t, store.tasks, 1)
	assert.Len(t, store.planners, 1)
}

func TestRunPreservesFavoriteAcrossPasses(t *testing.T) {
	up := fixtureUpstream()
	store := newFakeStore()
	orch := NewOrchestrator(up, store, &fakeGuard{}, nil, Options{})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)

	store.planners["p1"].IsFavorite = true

	_, err = orch.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, store.planners["p1"].IsFavorite)
}

func TestRunCountsEntityFailuresWithoutAborting(t *testing.T) {
	up := fixtureUpstream()
	up.groups = append(up.groups, graph.Group{ID: "g2", DisplayName: "Sales"})
	up.plans["g2"] = []graph.Plan{{ID: "p2", Title: "Pipeline"}}
	up.tasksErr = map[string]error{"p2": errors.New("boom")}

	store := newFakeStore()
	orch := NewOrchestrator(up, store, &fakeGuard{}, nil, Options{})

	res, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Stats.Errors)
	assert.Contains(t, res.Message, "1 errors")
	// The healthy group still synced.
	assert.Len(t, store.tasks, 1)
}

func TestRunUpstreamUnreachableAborts(t *testing.T) {
	up := fixtureUpstream()
	up.groupsErr = errors.New("connection refused")

	guard := &fakeGuard{}
	orch := NewOrchestrator(up, newFakeStore(), guard, nil, Options{})

	res, err := orch.Run(context.Background())
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.False(t, res.Success)
	// Lock released and failed run still recorded.
	assert.Equal(t, 1, guard.releases)
	require.NotNil(t, guard.lastRun)
	assert.False(t, guard.lastRun.Success)
}

func TestRunOverlapRejected(t *testing.T) {
	guard := &fakeGuard{held: true}
	orch := NewOrchestrator(fixtureUpstream(), newFakeStore(), guard, nil, Options{})

	_, err := orch.Run(context.Background())
	require.ErrorIs(t, err, ErrSyncInProgress)
	assert.Zero(t, guard.releases)
}

func TestRunRemovedUserGetsPlaceholder(t *testing.T) {
	up := fixtureUpstream()
	up.tasks["p1"][0].Assignments = map[string]graph.Assignment{"ghost": {}}

	store := newFakeStore()
	orch := NewOrchestrator(up, store, &fakeGuard{}, nil, Options{})

	res, err := orch.Run(context.Background())
	require.NoError(t, err)

	task := store.tasks["t1"]
	require.Len(t, task.Assignees, 1)
	assert.Equal(t, "Removed user", task.Assignees[0].DisplayName)
	assert.Zero(t, res.Stats.UsersEnriched)
}

func TestRunUserLookupCached(t *testing.T) {
	up := fixtureUpstream()
	up.tasks["p1"] = append(up.tasks["p1"], graph.Task{
		ID: "t2", PlanID: "p1", Title: "Second task",
		Assignments: map[string]graph.Assignment{"u1": {}},
	})

	orch := NewOrchestrator(up, newFakeStore(), &fakeGuard{}, nil, Options{})
	res, err := orch.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, up.userCalls)
	assert.Equal(t, 1, res.Stats.UsersEnriched)
}

type fakeScanner struct {
	calls int
}

func (f *fakeScanner) Scan(ctx context.Context) error {
	f.calls++
	return nil
}

func TestRunTriggersScanAfterSuccess(t *testing.T) {
	scanner := &fakeScanner{}
	orch := NewOrchestrator(fixtureUpstream(), newFakeStore(), &fakeGuard{}, scanner, Options{})

	_, err := orch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, scanner.calls)
}

func TestRunNoScanAfterAbort(t *testing.T) {
	up := fixtureUpstream()
	up.groupsErr = errors.New("down")
	scanner := &fakeScanner{}

	orch := NewOrchestrator(up, newFakeStore(), &fakeGuard{}, scanner, Options{})
	_, err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, scanner.calls)
}

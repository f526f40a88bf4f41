package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
	"github.com/plannerdash/go-planner-backend/internal/mirror/repository"
	"github.com/plannerdash/go-planner-backend/internal/storage/postgres"
)

// testDSN builds a connection string from TEST_DB_DSN or the TEST_DB_*
// variables. Tests are skipped when neither is set.
func testDSN(t *testing.T) string {
	t.Helper()

	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		return dsn
	}

	host := os.Getenv("TEST_DB_HOST")
	port := os.Getenv("TEST_DB_PORT")
	user := os.Getenv("TEST_DB_USER")
	password := os.Getenv("TEST_DB_PASSWORD")
	dbname := os.Getenv("TEST_DB_NAME")

	if host == "" || port == "" || user == "" || dbname == "" {
		t.Skip("TEST_DB_DSN or TEST_DB_* environment variables not set, skipping PostgreSQL integration test")
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

func setupStore(t *testing.T) (*repository.Store, *sql.DB) {
	t.Helper()
	dsn := testDSN(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))

	// Plain database/sql connection for raw row assertions.
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("TRUNCATE tasks, buckets, planners, groups, notifications CASCADE")
	require.NoError(t, err)

	return repository.NewStore(pool), db
}

func seedHierarchy(t *testing.T, store *repository.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.UpsertGroup(ctx, &domain.Group{ID: "g1", Name: "Engineering"}))
	require.NoError(t, store.UpsertPlanner(ctx, &domain.Planner{ID: "p1", GroupID: "g1", Title: "Sprint Board"}))
	require.NoError(t, store.UpsertBucket(ctx, &domain.Bucket{ID: "b1", PlannerID: "p1", Name: "To do"}))

	due := time.Now().Add(48 * time.Hour).UTC()
	require.NoError(t, store.UpsertTask(ctx, &domain.Task{
		ID: "t1", PlannerID: "p1", BucketID: "b1", Title: "Write report",
		Status: domain.StatusInProgress, Priority: domain.PriorityHigh,
		PercentComplete: 50, DueDate: &due,
	}))
	require.NoError(t, store.UpsertTask(ctx, &domain.Task{
		ID: "t2", PlannerID: "p1", BucketID: "b1", Title: "Ship release",
		Status: domain.StatusCompleted, Priority: domain.PriorityUrgent,
		PercentComplete: 100,
	}))
	require.NoError(t, store.RecomputePlannerMetrics(ctx, "p1"))
}

func TestUpsertIsIdempotent(t *testing.T) {
	store, db := setupStore(t)
	seedHierarchy(t, store)
	seedHierarchy(t, store)

	var tasks, planners int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tasks").Scan(&tasks))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM planners").Scan(&planners))
	assert.Equal(t, 2, tasks)
	assert.Equal(t, 1, planners)
}

func TestFavoriteSurvivesSync(t *testing.T) {
	store, _ := setupStore(t)
	seedHierarchy(t, store)
	ctx := context.Background()

	fav, err := store.SetFavorite(ctx, "p1", true)
	require.NoError(t, err)
	require.True(t, fav)

	// A later pass re-upserts the planner with fresh upstream data.
	require.NoError(t, store.UpsertPlanner(ctx, &domain.Planner{
		ID: "p1", GroupID: "g1", Title: "Sprint Board (renamed)",
	}))

	p, err := store.GetPlanner(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.IsFavorite)
	assert.Equal(t, "Sprint Board (renamed)", p.Title)
}

func TestSetFavoriteUnknownPlanner(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.SetFavorite(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, domain.ErrPlannerNotFound)
}

func TestRecomputePlannerMetrics(t *testing.T) {
	store, _ := setupStore(t)
	seedHierarchy(t, store)

	p, err := store.GetPlanner(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.TotalTasks)
	assert.Equal(t, 1, p.CompletedTasks)
	assert.Equal(t, 1, p.InProgressTasks)
	assert.InDelta(t, 50.0, p.CompletionRate(), 0.001)
}

func TestListTasksFilterAndPagination(t *testing.T) {
	store, _ := setupStore(t)
	seedHierarchy(t, store)
	ctx := context.Background()

	tasks, page, err := store.ListTasks(ctx, domain.TaskFilter{Status: domain.StatusCompleted}, 1, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t2", tasks[0].ID)
	assert.Equal(t, 1, page.Total)

	tasks, page, err = store.ListTasks(ctx, domain.TaskFilter{Search: "report"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)

	_, page, err = store.ListTasks(ctx, domain.TaskFilter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.Pages)
}

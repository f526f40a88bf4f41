package integration

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncpkg "github.com/plannerdash/go-planner-backend/internal/sync"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestGuardSerializesAcrossClients(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	guard := syncpkg.NewRedisGuard(client, time.Minute)

	ok, err := guard.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second process sharing the same Redis sees the lock as held.
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer other.Close()
	otherGuard := syncpkg.NewRedisGuard(other, time.Minute)

	ok, err = otherGuard.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, guard.Release(ctx))

	ok, err = otherGuard.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardLockExpires(t *testing.T) {
	mr, client := setupRedis(t)
	ctx := context.Background()

	guard := syncpkg.NewRedisGuard(client, 30*time.Second)

	ok, err := guard.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// A crashed run never releases; the TTL must free the lock.
	mr.FastForward(31 * time.Second)

	ok, err = guard.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardLastRunRoundTrip(t *testing.T) {
	_, client := setupRedis(t)
	ctx := context.Background()

	guard := syncpkg.NewRedisGuard(client, time.Minute)

	// No sync yet.
	last, err := guard.GetLastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	res := syncpkg.Result{
		Success: true,
		Message: "sync completed successfully",
		Stats:   syncpkg.Stats{Groups: 2, Planners: 3, Tasks: 17},
	}
	require.NoError(t, guard.SetLastRun(ctx, res))

	last, err = guard.GetLastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, res, last.Result)
	assert.WithinDuration(t, time.Now(), last.FinishedAt, 5*time.Second)
}

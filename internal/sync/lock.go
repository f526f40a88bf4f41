package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	lockKey   = "sync:lock"
	statusKey = "sync:last"
)

// RedisGuard serializes sync runs across every process sharing the mirror
// store, and keeps the last-run summary for the status endpoint.
type RedisGuard struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisGuard(client *redis.Client, lockTTL time.Duration) *RedisGuard {
	return &RedisGuard{client: client, lockTTL: lockTTL}
}

// Acquire takes the sync lock. Returns false when another run holds it. The
// TTL bounds how long a crashed run can block future syncs.
func (g *RedisGuard) Acquire(ctx context.Context) (bool, error) {
	ok, err := g.client.SetNX(ctx, lockKey, "1", g.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context) error {
	if err := g.client.Del(ctx, lockKey).Err(); err != nil {
		return fmt.Errorf("release sync lock: %w", err)
	}
	return nil
}

// LastRun is the persisted summary of the most recent sync pass.
type LastRun struct {
	FinishedAt time.Time `json:"finished_at"`
	Result     Result    `json:"result"`
}

func (g *RedisGuard) SetLastRun(ctx context.Context, res Result) error {
	data, err := json.Marshal(LastRun{FinishedAt: time.Now().UTC(), Result: res})
	if err != nil {
		return err
	}
	return g.client.Set(ctx, statusKey, data, 0).Err()
}

// GetLastRun returns the last sync summary, or nil if no sync has run yet.
func (g *RedisGuard) GetLastRun(ctx context.Context) (*LastRun, error) {
	data, err := g.client.Get(ctx, statusKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var lr LastRun
	if err := json.Unmarshal([]byte(data), &lr); err != nil {
		return nil, err
	}
	return &lr, nil
}

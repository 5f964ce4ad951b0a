package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyActiveEvents = "ledger:events:active"
	keyLeaderboard  = "ledger:leaderboard"
)

// Cache guarda em Redis as projeções de leitura do ledger (JSON com TTL)
type Cache struct {
	R   *redis.Client
	TTL time.Duration
}

func New(r *redis.Client, ttl time.Duration) *Cache { return &Cache{R: r, TTL: ttl} }

func (c *Cache) GetActiveEvents(ctx context.Context, dst any) (bool, error) {
	return c.get(ctx, keyActiveEvents, dst)
}

func (c *Cache) SetActiveEvents(ctx context.Context, v any) error {
	return c.set(ctx, keyActiveEvents, v)
}

func (c *Cache) GetLeaderboard(ctx context.Context, dst any) (bool, error) {
	return c.get(ctx, keyLeaderboard, dst)
}

func (c *Cache) SetLeaderboard(ctx context.Context, v any) error {
	return c.set(ctx, keyLeaderboard, v)
}

func (c *Cache) InvalidateActiveEvents(ctx context.Context) error {
	return c.R.Del(ctx, keyActiveEvents).Err()
}

func (c *Cache) InvalidateLeaderboard(ctx context.Context) error {
	return c.R.Del(ctx, keyLeaderboard).Err()
}

func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.R.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, key, b, c.TTL).Err()
}

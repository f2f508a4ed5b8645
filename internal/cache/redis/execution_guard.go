package redis

import (
	"context"
	"fmt"
	"time"

	"solana-mev-agent/internal/storage"
)

const guardPrefix = "mev:exec:"

// ExecutionGuard implements storage.ExecutionGuard with SETNX.
type ExecutionGuard struct {
	c *Client
}

// NewExecutionGuard creates a guard backed by c.
func NewExecutionGuard(c *Client) *ExecutionGuard {
	return &ExecutionGuard{c: c}
}

// Compile-time interface check.
var _ storage.ExecutionGuard = (*ExecutionGuard)(nil)

// Acquire sets the decision key if absent. A non-positive ttl never expires.
func (g *ExecutionGuard) Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, storage.ErrInvalidInput
	}
	if ttl < 0 {
		ttl = 0
	}

	ok, err := g.c.rdb.SetNX(ctx, guardPrefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire %s: %w", id, err)
	}
	return ok, nil
}

package memory

import (
	"context"
	"sync"
	"time"

	"solana-mev-agent/internal/storage"
)

// ExecutionGuard is an in-memory implementation of storage.ExecutionGuard.
type ExecutionGuard struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewExecutionGuard creates a new in-memory execution guard.
func NewExecutionGuard() *ExecutionGuard {
	return &ExecutionGuard{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Compile-time interface check.
var _ storage.ExecutionGuard = (*ExecutionGuard)(nil)

// Acquire marks id for ttl. A non-positive ttl holds id forever.
func (g *ExecutionGuard) Acquire(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, storage.ErrInvalidInput
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, held := g.expires[id]; held && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}

	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	g.expires[id] = exp
	return true, nil
}

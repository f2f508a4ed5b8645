package storage

import (
	"context"
	"time"

	"solana-mev-agent/internal/domain"
)

// TradeLogStore is the append-only audit trail of execution attempts.
type TradeLogStore interface {
	// Append adds a record. Returns ErrDuplicateKey if the id exists.
	Append(ctx context.Context, l *domain.TradeLog) error

	// History returns every record in append order.
	History(ctx context.Context) ([]*domain.TradeLog, error)
}

// EvaluationStore provides access to opportunity_evaluations storage.
type EvaluationStore interface {
	// Insert adds one evaluation row.
	Insert(ctx context.Context, r *domain.EvaluationRecord) error

	// GetByTimeRange retrieves rows evaluated within [start, end] (inclusive, Unix ms),
	// ordered by evaluated_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EvaluationRecord, error)
}

// ExecutionGuard records which decisions have already been executed.
type ExecutionGuard interface {
	// Acquire marks id as executing for ttl. Returns false if id is already held.
	Acquire(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

package memory

import (
	"context"
	"sort"
	"sync"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/storage"
)

// EvaluationStore is an in-memory implementation of storage.EvaluationStore.
type EvaluationStore struct {
	mu   sync.RWMutex
	data []*domain.EvaluationRecord
}

// NewEvaluationStore creates a new in-memory evaluation store.
func NewEvaluationStore() *EvaluationStore {
	return &EvaluationStore{}
}

// Compile-time interface check.
var _ storage.EvaluationStore = (*EvaluationStore)(nil)

// Insert adds one evaluation row.
func (s *EvaluationStore) Insert(_ context.Context, r *domain.EvaluationRecord) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *r
	s.data = append(s.data, &copy)
	return nil
}

// GetByTimeRange retrieves rows within [start, end], ordered by evaluated_at ASC.
func (s *EvaluationStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EvaluationRecord
	for _, r := range s.data {
		if r.EvaluatedAt >= start && r.EvaluatedAt <= end {
			copy := *r
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EvaluatedAt < result[j].EvaluatedAt
	})

	return result, nil
}

// Len returns the number of stored rows.
func (s *EvaluationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

package memory

import (
	"context"
	"sync"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/storage"
)

// TradeLogStore is an in-memory implementation of storage.TradeLogStore.
type TradeLogStore struct {
	mu    sync.RWMutex
	ids   map[string]struct{}
	order []*domain.TradeLog
}

// NewTradeLogStore creates a new in-memory trade log store.
func NewTradeLogStore() *TradeLogStore {
	return &TradeLogStore{
		ids: make(map[string]struct{}),
	}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Append adds a record. Returns ErrDuplicateKey if id exists.
func (s *TradeLogStore) Append(_ context.Context, l *domain.TradeLog) error {
	if err := storage.ValidateTradeLog(l); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[l.ID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *l
	s.ids[l.ID] = struct{}{}
	s.order = append(s.order, &copy)
	return nil
}

// History returns copies of all records in append order.
func (s *TradeLogStore) History(_ context.Context) ([]*domain.TradeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TradeLog, 0, len(s.order))
	for _, l := range s.order {
		copy := *l
		result = append(result, &copy)
	}
	return result, nil
}

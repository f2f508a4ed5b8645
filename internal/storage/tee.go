package storage

import (
	"context"
	"errors"
	"fmt"

	"solana-mev-agent/internal/domain"
)

// TeeTradeLogStore appends to a primary store and mirrors every record to
// secondaries. History reads the primary only.
type TeeTradeLogStore struct {
	primary     TradeLogStore
	secondaries []TradeLogStore
}

// NewTeeTradeLogStore returns a store writing to primary and secondaries.
func NewTeeTradeLogStore(primary TradeLogStore, secondaries ...TradeLogStore) *TeeTradeLogStore {
	return &TeeTradeLogStore{primary: primary, secondaries: secondaries}
}

var _ TradeLogStore = (*TeeTradeLogStore)(nil)

// Append writes l to the primary first. A primary failure stops there;
// mirror failures are joined and returned after every mirror was tried.
func (s *TeeTradeLogStore) Append(ctx context.Context, l *domain.TradeLog) error {
	if err := s.primary.Append(ctx, l); err != nil {
		return err
	}

	var errs []error
	for i, m := range s.secondaries {
		if err := m.Append(ctx, l); err != nil {
			errs = append(errs, fmt.Errorf("mirror %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// History returns the primary's history.
func (s *TeeTradeLogStore) History(ctx context.Context) ([]*domain.TradeLog, error) {
	return s.primary.History(ctx)
}

package storage

import (
	"errors"
	"fmt"

	"solana-mev-agent/internal/domain"
)

// Storage errors for append-only stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidateTradeLog checks the fields every trade log store requires.
func ValidateTradeLog(l *domain.TradeLog) error {
	switch {
	case l == nil:
		return ErrInvalidInput
	case l.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidInput)
	case l.TokenIn == "" || l.TokenOut == "":
		return fmt.Errorf("%w: empty token pair", ErrInvalidInput)
	case !l.Strategy.IsValid():
		return fmt.Errorf("%w: strategy %q", ErrInvalidInput, l.Strategy)
	}
	return nil
}

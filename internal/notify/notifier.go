// Package notify delivers opportunity and execution alerts.
package notify

import (
	"context"
	"errors"

	"solana-mev-agent/internal/domain"
)

// Notifier delivers alerts about trade decisions. Delivery is best-effort:
// callers log errors and carry on.
type Notifier interface {
	NotifyOpportunityDetected(ctx context.Context, d *domain.TradeDecision) error
	NotifyTradeExecuted(ctx context.Context, d *domain.TradeDecision, signature string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) NotifyOpportunityDetected(context.Context, *domain.TradeDecision) error { return nil }

func (Nop) NotifyTradeExecuted(context.Context, *domain.TradeDecision, string) error { return nil }

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) NotifyOpportunityDetected(ctx context.Context, d *domain.TradeDecision) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyOpportunityDetected(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyTradeExecuted(ctx context.Context, d *domain.TradeDecision, signature string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyTradeExecuted(ctx, d, signature); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatWallet shortens long addresses to "abcdef...uvwxyz".
func FormatWallet(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-6:]
}

var (
	_ Notifier = Nop{}
	_ Notifier = Multi(nil)
)

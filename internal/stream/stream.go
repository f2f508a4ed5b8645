// Package stream turns the Solana slot feed into normalized swap transactions.
package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/solana"
)

// State is the connection state of the stream.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// DefaultExcludedWallets are known MEV bot and aggregator signers.
var DefaultExcludedWallets = []string{
	"JUP2jxvXaqu7NQY1GmNF4m1vodw12LVXYxbFL2uJvfo",
	"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
}

// Config configures SwapStream.
type Config struct {
	// Backoff is the fixed wait between subscription attempts.
	Backoff time.Duration
	// MaxRetries bounds consecutive failed subscriptions; 0 retries forever.
	MaxRetries uint64
	// ConfirmationLag is subtracted from notified slots before fetching, so
	// the block is available at the RPC commitment level.
	ConfirmationLag int64
	// TargetTokens keeps only swaps touching these symbols or mints. Empty keeps all.
	TargetTokens []string
	// ExcludedWallets drops swaps signed by these wallets.
	ExcludedWallets []string
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig() Config {
	return Config{
		Backoff:         time.Second,
		ConfirmationLag: 2,
		ExcludedWallets: DefaultExcludedWallets,
	}
}

// BlockFetcher fetches full blocks.
type BlockFetcher interface {
	GetBlock(ctx context.Context, slot int64) (*solana.Block, error)
}

// Decoder normalizes a transaction into a swap.
type Decoder interface {
	Parse(tx *solana.Transaction) (*domain.SwapTransaction, error)
}

// SwapStream subscribes to slots and emits the decoded swaps of each block.
// Reconnects are owned here; the feed itself never retries.
type SwapStream struct {
	feed    solana.WSClient
	blocks  BlockFetcher
	decoder Decoder
	cfg     Config
	timer   backoff.Timer
	logger  logrus.FieldLogger

	excluded map[string]struct{}
	targets  map[string]struct{}

	state     atomic.Int32
	lastFetch int64
}

// Option configures a SwapStream.
type Option func(*SwapStream)

// WithTimer replaces the wall-clock timer used for backoff waits.
func WithTimer(t backoff.Timer) Option {
	return func(s *SwapStream) {
		s.timer = t
	}
}

// New creates a SwapStream. A nil logger uses the logrus standard logger.
func New(feed solana.WSClient, blocks BlockFetcher, decoder Decoder, cfg Config, logger logrus.FieldLogger, opts ...Option) *SwapStream {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}

	s := &SwapStream{
		feed:     feed,
		blocks:   blocks,
		decoder:  decoder,
		cfg:      cfg,
		logger:   logger.WithField("component", "stream"),
		excluded: toSet(cfg.ExcludedWallets, false),
		targets:  toSet(cfg.TargetTokens, true),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.timer == nil {
		s.timer = &wallTimer{}
	}
	return s
}

// State returns the current connection state.
func (s *SwapStream) State() State {
	return State(s.state.Load())
}

func (s *SwapStream) setState(st State) {
	s.state.Store(int32(st))
	observability.SetStreamState(int(st))
}

// Run streams swaps into out until ctx is cancelled or subscription retries
// are exhausted. It does not close out.
func (s *SwapStream) Run(ctx context.Context, out chan<- domain.SwapTransaction) error {
	defer s.setState(StateDisconnected)

	var policy backoff.BackOff = backoff.NewConstantBackOff(s.cfg.Backoff)
	if s.cfg.MaxRetries > 0 {
		policy = backoff.WithMaxRetries(policy, s.cfg.MaxRetries)
	}
	policy = backoff.WithContext(policy, ctx)

	for {
		var slots <-chan solana.SlotNotification
		subscribe := func() error {
			s.setState(StateConnecting)
			ch, err := s.feed.SubscribeSlots(ctx)
			if err != nil {
				s.setState(StateDisconnected)
				return domain.NewError(domain.ErrConnectivity, "stream.subscribe", err)
			}
			slots = ch
			return nil
		}
		notify := func(err error, wait time.Duration) {
			observability.RecordReconnect()
			s.logger.WithError(err).WithField("retry_in", wait).Warn("subscription failed")
		}

		if err := backoff.RetryNotifyWithTimer(subscribe, policy, notify, s.timer); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("subscribe slots: retries exhausted: %w", err)
		}

		s.setState(StateSubscribed)
		s.logger.Info("subscribed to slot feed")

		if err := s.consume(ctx, slots, out); err != nil {
			return err
		}

		s.setState(StateDisconnected)
		s.logger.Warn("slot feed dropped, reconnecting")
		observability.RecordReconnect()
		if err := s.wait(ctx); err != nil {
			return err
		}
	}
}

// consume returns nil when the feed closes and ctx.Err() on cancellation.
func (s *SwapStream) consume(ctx context.Context, slots <-chan solana.SlotNotification, out chan<- domain.SwapTransaction) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-slots:
			if !ok {
				return nil
			}
			observability.UpdateHighestSlot(n.Slot)

			slot := n.Slot - s.cfg.ConfirmationLag
			if slot <= s.lastFetch {
				continue
			}
			s.lastFetch = slot

			if err := s.processSlot(ctx, slot, out); err != nil {
				return err
			}
		}
	}
}

func (s *SwapStream) processSlot(ctx context.Context, slot int64, out chan<- domain.SwapTransaction) error {
	block, err := s.blocks.GetBlock(ctx, slot)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		observability.RecordBlockFetchError()
		s.logger.WithError(err).WithField("slot", slot).Debug("block fetch failed, skipping slot")
		return nil
	}

	for i := range block.Transactions {
		swap, err := s.decoder.Parse(&block.Transactions[i])
		if err != nil {
			if !errors.Is(err, domain.ErrDecode) {
				s.logger.WithError(err).WithField("slot", slot).Debug("unexpected decode error")
			}
			continue
		}

		if reason, drop := s.filter(swap); drop {
			observability.RecordSwapFiltered(reason)
			s.logger.WithFields(logrus.Fields{
				"signature": swap.Signature,
				"pair":      swap.Pair(),
				"reason":    reason,
			}).Debug("swap filtered")
			continue
		}

		observability.RecordSwapDecoded()
		select {
		case out <- *swap:
			observability.SetQueueLength(len(out))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *SwapStream) filter(swap *domain.SwapTransaction) (string, bool) {
	if _, ok := s.excluded[swap.WalletAddress]; ok {
		return "excluded_wallet", true
	}
	if len(s.targets) == 0 {
		return "", false
	}
	_, in := s.targets[strings.ToUpper(swap.TokenIn)]
	_, outTok := s.targets[strings.ToUpper(swap.TokenOut)]
	if !in && !outTok {
		return "untargeted_token", true
	}
	return "", false
}

// wait sleeps one backoff interval on the stream timer.
func (s *SwapStream) wait(ctx context.Context) error {
	s.timer.Start(s.cfg.Backoff)
	defer s.timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.timer.C():
		return nil
	}
}

func toSet(values []string, upper bool) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if upper {
			v = strings.ToUpper(v)
		}
		set[v] = struct{}{}
	}
	return set
}

// wallTimer implements backoff.Timer with time.Timer.
type wallTimer struct {
	timer *time.Timer
}

func (t *wallTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = time.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *wallTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *wallTimer) C() <-chan time.Time {
	return t.timer.C
}

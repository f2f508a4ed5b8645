// Package executor simulates and executes trade decisions through the router.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/router"
	"solana-mev-agent/internal/solana"
	"solana-mev-agent/internal/storage"
	"solana-mev-agent/internal/tokens"
)

// DryRunSignature is returned by Execute in dry-run mode.
const DryRunSignature = "SIM_TX_SIGNATURE"

// DefaultPriorityFee is the compute-unit price for sandwich legs, in micro-lamports.
const DefaultPriorityFee uint64 = 1000

var (
	// ErrDuplicateExecution is returned when the guard already holds a decision id.
	ErrDuplicateExecution = errors.New("decision already executed")
	// ErrNotSandwichPair is returned by ExecuteSandwich for mismatched legs.
	ErrNotSandwichPair = errors.New("not a sandwich front/back pair")
)

// Router is the swap API the executor drives.
type Router interface {
	BestQuote(ctx context.Context, inputMint, outputMint string, amount, minOut uint64) (*router.Quote, error)
	BuildSwap(ctx context.Context, quote *router.Quote, userPubkey string, priorityFee uint64) ([]byte, error)
	Swap(ctx context.Context, quote *router.Quote, signer *solana.Keypair) (string, error)
	SwapWithPriorityFee(ctx context.Context, quote *router.Quote, signer *solana.Keypair, fee uint64) (string, error)
	TokenInfo(ctx context.Context, mint string) (*router.TokenInfo, error)
}

// Simulator dry-runs serialized transactions.
type Simulator interface {
	SimulateTransaction(ctx context.Context, tx []byte) (*solana.SimulationResult, error)
}

// Deps are the executor's collaborators. Guard is optional.
type Deps struct {
	Router Router
	RPC    Simulator
	Signer *solana.Keypair
	Tokens *tokens.Registry
	Guard  storage.ExecutionGuard
}

// Config controls execution behavior.
type Config struct {
	DryRun      bool
	PriorityFee uint64        // micro-lamports per compute unit for sandwich legs
	GuardTTL    time.Duration // how long a decision id stays claimed
}

// DefaultConfig returns the executor defaults.
func DefaultConfig() Config {
	return Config{
		PriorityFee: DefaultPriorityFee,
		GuardTTL:    24 * time.Hour,
	}
}

// Executor runs the simulate-then-commit state machine. Calls are expected to
// be sequential; LastState reflects the most recent transition.
type Executor struct {
	deps   Deps
	cfg    Config
	logger logrus.FieldLogger
	state  atomic.Int32
}

// New creates an executor. A nil logger uses the logrus standard logger.
func New(deps Deps, cfg Config, logger logrus.FieldLogger) *Executor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.PriorityFee == 0 {
		cfg.PriorityFee = DefaultPriorityFee
	}
	if deps.Tokens == nil {
		deps.Tokens = tokens.Default()
	}
	return &Executor{
		deps:   deps,
		cfg:    cfg,
		logger: logger.WithField("component", "executor"),
	}
}

// LastState returns the most recent state.
func (e *Executor) LastState() State {
	return State(e.state.Load())
}

// DryRun reports whether Execute skips the chain.
func (e *Executor) DryRun() bool {
	return e.cfg.DryRun
}

func (e *Executor) setState(s State) {
	e.state.Store(int32(s))
}

// Simulate quotes, builds and dry-runs d without side effects. It returns false
// for expected rejections (no route, quote below min out, simulation error) and
// an error for infrastructure or validation failures.
func (e *Executor) Simulate(ctx context.Context, d *domain.TradeDecision) (bool, error) {
	const op = "executor.Simulate"
	log := e.logger.WithFields(logrus.Fields{"pair": d.Pair(), "strategy": d.Strategy})

	e.setState(StateSimulating)

	quote, err := e.quote(ctx, d)
	if err != nil {
		e.setState(StateSimulationFailed)
		if errors.Is(err, router.ErrNoRoute) || errors.Is(err, router.ErrBelowMinOut) {
			observability.RecordSimulation("rejected")
			log.WithError(err).Info("simulation rejected by quote")
			return false, nil
		}
		observability.RecordSimulation("error")
		return false, err
	}

	tx, err := e.deps.Router.BuildSwap(ctx, quote, e.deps.Signer.PublicKey(), e.feeFor(d.Strategy))
	if err != nil {
		e.setState(StateSimulationFailed)
		observability.RecordSimulation("error")
		return false, err
	}

	result, err := e.deps.RPC.SimulateTransaction(ctx, tx)
	if err != nil {
		e.setState(StateSimulationFailed)
		observability.RecordSimulation("error")
		return false, domain.NewError(domain.ErrExecution, op, err)
	}
	if !result.Succeeded() {
		e.setState(StateSimulationFailed)
		observability.RecordSimulation("failed")
		log.WithField("sim_err", fmt.Sprint(result.Err)).Info("simulation failed")
		return false, nil
	}

	e.setState(StateSimulationPassed)
	observability.RecordSimulation("passed")
	log.WithField("units", result.UnitsConsumed).Debug("simulation passed")
	return true, nil
}

// Execute sends d. Sandwich legs go out on the priority-fee path. Execute is
// never retried here.
func (e *Executor) Execute(ctx context.Context, d *domain.TradeDecision) (string, error) {
	const op = "executor.Execute"
	log := e.logger.WithFields(logrus.Fields{"pair": d.Pair(), "strategy": d.Strategy, "amount": d.AmountIn})

	e.setState(StateExecuting)
	start := time.Now()

	if e.cfg.DryRun {
		log.Info("dry run, not sending")
		e.setState(StateCommitted)
		observability.RecordExecution(d.Strategy.String(), "dry_run", time.Since(start).Seconds())
		return DryRunSignature, nil
	}

	fail := func(err error) (string, error) {
		e.setState(StateExecutionFailed)
		observability.RecordExecution(d.Strategy.String(), "failed", time.Since(start).Seconds())
		log.WithError(err).Warn("execution failed")
		return "", err
	}

	if e.deps.Guard != nil {
		ok, err := e.deps.Guard.Acquire(ctx, d.ID, e.cfg.GuardTTL)
		if err != nil {
			return fail(domain.NewError(domain.ErrConnectivity, op, err))
		}
		if !ok {
			return fail(domain.NewError(domain.ErrExecution, op, fmt.Errorf("%w: %s", ErrDuplicateExecution, d.ID)))
		}
	}

	quote, err := e.quote(ctx, d)
	if err != nil {
		return fail(err)
	}

	var sig string
	if d.Strategy.IsSandwichLeg() {
		sig, err = e.deps.Router.SwapWithPriorityFee(ctx, quote, e.deps.Signer, e.cfg.PriorityFee)
	} else {
		sig, err = e.deps.Router.Swap(ctx, quote, e.deps.Signer)
	}
	if err != nil {
		return fail(domain.NewError(domain.ErrExecution, op, err))
	}

	e.setState(StateCommitted)
	observability.RecordExecution(d.Strategy.String(), "committed", time.Since(start).Seconds())
	log.WithField("signature", sig).Info("trade committed")
	return sig, nil
}

// ExecuteSandwich executes front, waits gap, then executes back. A front
// failure aborts before the back leg.
func (e *Executor) ExecuteSandwich(ctx context.Context, front, back *domain.TradeDecision, gap time.Duration) (string, string, error) {
	const op = "executor.ExecuteSandwich"

	if front.Strategy != domain.StrategySandwichFront || back.Strategy != domain.StrategySandwichBack {
		return "", "", domain.NewError(domain.ErrValidation, op, ErrNotSandwichPair)
	}

	frontSig, err := e.Execute(ctx, front)
	if err != nil {
		return "", "", fmt.Errorf("front leg: %w", err)
	}

	if gap > 0 {
		t := time.NewTimer(gap)
		select {
		case <-ctx.Done():
			t.Stop()
			return frontSig, "", ctx.Err()
		case <-t.C:
		}
	}

	backSig, err := e.Execute(ctx, back)
	if err != nil {
		return frontSig, "", fmt.Errorf("back leg: %w", err)
	}
	return frontSig, backSig, nil
}

func (e *Executor) feeFor(s domain.Strategy) uint64 {
	if s.IsSandwichLeg() {
		return e.cfg.PriorityFee
	}
	return 0
}

// quote resolves both mints, converts amounts to raw units and asks the router.
func (e *Executor) quote(ctx context.Context, d *domain.TradeDecision) (*router.Quote, error) {
	const op = "executor.quote"

	inMint, err := e.deps.Tokens.Mint(d.TokenIn)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, op, err)
	}
	outMint, err := e.deps.Tokens.Mint(d.TokenOut)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, op, err)
	}

	inInfo, err := e.deps.Router.TokenInfo(ctx, inMint)
	if err != nil {
		return nil, err
	}
	outInfo, err := e.deps.Router.TokenInfo(ctx, outMint)
	if err != nil {
		return nil, err
	}

	amount, err := ToRaw(d.AmountIn, inInfo.Decimals)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, op, fmt.Errorf("amount in: %w", err))
	}
	if amount == 0 {
		return nil, domain.NewError(domain.ErrValidation, op, fmt.Errorf("amount in rounds to zero"))
	}
	minOut, err := ToRaw(d.ExpectedMinOut, outInfo.Decimals)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, op, fmt.Errorf("min out: %w", err))
	}

	return e.deps.Router.BestQuote(ctx, inMint, outMint, amount, minOut)
}

// ToRaw converts a UI amount to integer base units, truncating. Negative amounts
// convert to zero.
func ToRaw(amount float64, decimals uint8) (uint64, error) {
	d := decimal.NewFromFloat(amount)
	if d.IsNegative() {
		return 0, nil
	}
	raw := d.Shift(int32(decimals)).Truncate(0).BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64 at %d decimals", d.String(), decimals)
	}
	return raw.Uint64(), nil
}

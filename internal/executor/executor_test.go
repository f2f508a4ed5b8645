package executor

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/router"
	"solana-mev-agent/internal/solana"
	"solana-mev-agent/internal/solana/stub"
	"solana-mev-agent/internal/storage/memory"
	"solana-mev-agent/internal/tokens"
)

type quoteCall struct {
	in, out        string
	amount, minOut uint64
}

type swapCall struct {
	priority bool
	fee      uint64
}

type fakeRouter struct {
	mu        sync.Mutex
	quoteErr  error
	buildErr  error
	swapErr   error
	failAfter int // swaps before swapErr applies; 0 means always
	quotes    []quoteCall
	swaps     []swapCall
	buildFees []uint64
}

var decimalsByMint = map[string]uint8{
	tokens.MintUSDC: 6,
	tokens.MintSOL:  9,
	tokens.MintBONK: 5,
}

func (r *fakeRouter) BestQuote(_ context.Context, in, out string, amount, minOut uint64) (*router.Quote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quotes = append(r.quotes, quoteCall{in, out, amount, minOut})
	if r.quoteErr != nil {
		return nil, r.quoteErr
	}
	return &router.Quote{InputMint: in, OutputMint: out, InAmount: amount, OutAmount: minOut + 1}, nil
}

func (r *fakeRouter) BuildSwap(_ context.Context, _ *router.Quote, _ string, fee uint64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buildFees = append(r.buildFees, fee)
	if r.buildErr != nil {
		return nil, r.buildErr
	}
	return []byte("unsigned"), nil
}

func (r *fakeRouter) swap(priority bool, fee uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swaps = append(r.swaps, swapCall{priority, fee})
	if r.swapErr != nil && len(r.swaps) > r.failAfter {
		return "", r.swapErr
	}
	return "sig-" + string(rune('0'+len(r.swaps))), nil
}

func (r *fakeRouter) Swap(_ context.Context, _ *router.Quote, _ *solana.Keypair) (string, error) {
	return r.swap(false, 0)
}

func (r *fakeRouter) SwapWithPriorityFee(_ context.Context, _ *router.Quote, _ *solana.Keypair, fee uint64) (string, error) {
	return r.swap(true, fee)
}

func (r *fakeRouter) TokenInfo(_ context.Context, mint string) (*router.TokenInfo, error) {
	dec, ok := decimalsByMint[mint]
	if !ok {
		return nil, domain.NewError(domain.ErrValidation, "fake.TokenInfo", errors.New("no mint"))
	}
	return &router.TokenInfo{Mint: mint, Decimals: dec}, nil
}

func newTestExecutor(t *testing.T, cfg Config) (*Executor, *fakeRouter, *stub.RPCClient) {
	t.Helper()
	kp, err := solana.NewKeypairFromSeed(bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	r := &fakeRouter{}
	rpc := stub.NewRPCClient()
	e := New(Deps{Router: r, RPC: rpc, Signer: kp, Tokens: tokens.Default()}, cfg, logger)
	return e, r, rpc
}

func decision(strategy domain.Strategy) *domain.TradeDecision {
	return &domain.TradeDecision{
		ID:              "decision-" + string(strategy),
		TokenIn:         "USDC",
		TokenOut:        "sol",
		AmountIn:        50,
		ExpectedMinOut:  1.295,
		ConfidenceScore: 0.95,
		RiskLevel:       2,
		Strategy:        strategy,
	}
}

func TestExecutor_SimulatePasses(t *testing.T) {
	e, r, rpc := newTestExecutor(t, DefaultConfig())
	assert.Equal(t, StateIdle, e.LastState())

	ok, err := e.Simulate(context.Background(), decision(domain.StrategySnipe))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateSimulationPassed, e.LastState())

	require.Len(t, r.quotes, 1)
	assert.Equal(t, quoteCall{tokens.MintUSDC, tokens.MintSOL, 50_000_000, 1_295_000_000}, r.quotes[0])
	assert.Equal(t, []uint64{0}, r.buildFees)
	assert.Len(t, rpc.Simulated, 1)
	assert.Empty(t, rpc.Sent)
	assert.Empty(t, r.swaps)
}

func TestExecutor_SimulateRepeatedHasNoSideEffects(t *testing.T) {
	e, r, rpc := newTestExecutor(t, DefaultConfig())
	d := decision(domain.StrategySandwich)

	const calls = 5
	for i := 0; i < calls; i++ {
		ok, err := e.Simulate(context.Background(), d)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assert.Len(t, r.quotes, calls)
	assert.Len(t, rpc.Simulated, calls)
	assert.Empty(t, rpc.Sent)
	assert.Zero(t, rpc.SentCount())
	assert.Empty(t, r.swaps)
	assert.Equal(t, StateSimulationPassed, e.LastState())

	// Simulating does not take the execution guard, so the decision still executes.
	sig, err := e.Execute(context.Background(), d)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
}

func TestExecutor_SimulateRejections(t *testing.T) {
	tests := []struct {
		name      string
		quoteErr  error
		simResult *solana.SimulationResult
	}{
		{"no route", domain.NewError(domain.ErrValidation, "router", router.ErrNoRoute), nil},
		{"below min out", domain.NewError(domain.ErrValidation, "router", router.ErrBelowMinOut), nil},
		{"simulation error", nil, &solana.SimulationResult{Err: map[string]interface{}{"InstructionError": []interface{}{2, "Custom"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r, rpc := newTestExecutor(t, DefaultConfig())
			r.quoteErr = tt.quoteErr
			if tt.simResult != nil {
				rpc.SimulateResult = tt.simResult
			}

			ok, err := e.Simulate(context.Background(), decision(domain.StrategyArbitrage))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, StateSimulationFailed, e.LastState())
		})
	}
}

func TestExecutor_SimulateErrors(t *testing.T) {
	t.Run("unknown token", func(t *testing.T) {
		e, r, _ := newTestExecutor(t, DefaultConfig())
		d := decision(domain.StrategySnipe)
		d.TokenOut = "NOPE"

		_, err := e.Simulate(context.Background(), d)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.ErrorIs(t, err, tokens.ErrUnknownToken)
		assert.Empty(t, r.quotes)
	})

	t.Run("rpc failure", func(t *testing.T) {
		e, _, rpc := newTestExecutor(t, DefaultConfig())
		rpc.SimulateErr = errors.New("node unhealthy")

		_, err := e.Simulate(context.Background(), decision(domain.StrategySnipe))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrExecution)
		assert.Equal(t, StateSimulationFailed, e.LastState())
	})
}

func TestExecutor_ExecuteDryRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DryRun = true
	e, r, _ := newTestExecutor(t, cfg)

	sig, err := e.Execute(context.Background(), decision(domain.StrategySandwich))
	require.NoError(t, err)
	assert.Equal(t, DryRunSignature, sig)
	assert.Equal(t, StateCommitted, e.LastState())
	assert.Empty(t, r.quotes)
	assert.Empty(t, r.swaps)
}

func TestExecutor_ExecutePaths(t *testing.T) {
	tests := []struct {
		strategy domain.Strategy
		want     swapCall
	}{
		{domain.StrategyArbitrage, swapCall{false, 0}},
		{domain.StrategySnipe, swapCall{false, 0}},
		{domain.StrategySandwich, swapCall{false, 0}},
		{domain.StrategySandwichFront, swapCall{true, 1000}},
		{domain.StrategySandwichBack, swapCall{true, 1000}},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			e, r, _ := newTestExecutor(t, DefaultConfig())

			sig, err := e.Execute(context.Background(), decision(tt.strategy))
			require.NoError(t, err)
			assert.Equal(t, "sig-1", sig)
			assert.Equal(t, StateCommitted, e.LastState())
			assert.Equal(t, []swapCall{tt.want}, r.swaps)
		})
	}
}

func TestExecutor_ExecuteCustomPriorityFee(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PriorityFee = 25_000
	e, r, _ := newTestExecutor(t, cfg)

	_, err := e.Execute(context.Background(), decision(domain.StrategySandwichFront))
	require.NoError(t, err)
	assert.Equal(t, []swapCall{{true, 25_000}}, r.swaps)
}

func TestExecutor_ExecuteFailure(t *testing.T) {
	e, r, _ := newTestExecutor(t, DefaultConfig())
	r.swapErr = errors.New("blockhash expired")

	_, err := e.Execute(context.Background(), decision(domain.StrategySnipe))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExecution)
	assert.Equal(t, StateExecutionFailed, e.LastState())
	assert.Len(t, r.swaps, 1, "execute must not retry")
}

func TestExecutor_DuplicateGuard(t *testing.T) {
	kp, err := solana.NewKeypairFromSeed(bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	r := &fakeRouter{}

	e := New(Deps{
		Router: r,
		RPC:    stub.NewRPCClient(),
		Signer: kp,
		Guard:  memory.NewExecutionGuard(),
	}, DefaultConfig(), logger)

	d := decision(domain.StrategySnipe)
	_, err = e.Execute(context.Background(), d)
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateExecution)
	assert.Len(t, r.swaps, 1)

	other := decision(domain.StrategySnipe)
	other.ID = "another"
	_, err = e.Execute(context.Background(), other)
	assert.NoError(t, err)
}

func TestExecutor_ExecuteSandwich(t *testing.T) {
	e, r, _ := newTestExecutor(t, DefaultConfig())

	front := decision(domain.StrategySandwichFront)
	back := decision(domain.StrategySandwichBack)
	back.TokenIn, back.TokenOut = "SOL", "USDC"
	back.AmountIn, back.ExpectedMinOut = 1.4, 49

	frontSig, backSig, err := e.ExecuteSandwich(context.Background(), front, back, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "sig-1", frontSig)
	assert.Equal(t, "sig-2", backSig)

	require.Len(t, r.quotes, 2)
	assert.Equal(t, tokens.MintUSDC, r.quotes[0].in)
	assert.Equal(t, tokens.MintSOL, r.quotes[1].in)
	assert.Equal(t, uint64(1_400_000_000), r.quotes[1].amount)
}

func TestExecutor_ExecuteSandwichFrontFailureAborts(t *testing.T) {
	e, r, _ := newTestExecutor(t, DefaultConfig())
	r.swapErr = errors.New("front rejected")

	_, _, err := e.ExecuteSandwich(context.Background(),
		decision(domain.StrategySandwichFront), decision(domain.StrategySandwichBack), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front leg")
	assert.Len(t, r.swaps, 1)
}

func TestExecutor_ExecuteSandwichRequiresLegs(t *testing.T) {
	e, r, _ := newTestExecutor(t, DefaultConfig())

	_, _, err := e.ExecuteSandwich(context.Background(),
		decision(domain.StrategySandwich), decision(domain.StrategySandwichBack), 0)
	assert.ErrorIs(t, err, ErrNotSandwichPair)
	assert.Empty(t, r.swaps)
}

func TestToRaw(t *testing.T) {
	tests := []struct {
		amount   float64
		decimals uint8
		want     uint64
	}{
		{50, 6, 50_000_000},
		{1.295, 9, 1_295_000_000},
		{0.1234567, 6, 123_456},
		{-1, 6, 0},
		{0, 9, 0},
	}

	for _, tt := range tests {
		got, err := ToRaw(tt.amount, tt.decimals)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ToRaw(%v, %d)", tt.amount, tt.decimals)
	}

	_, err := ToRaw(1e30, 9)
	assert.Error(t, err)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "simulation_passed", StateSimulationPassed.String())
	assert.Equal(t, "unknown", State(99).String())
}

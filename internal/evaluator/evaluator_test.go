package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/market"
	"solana-mev-agent/internal/oracle"
)

type fixedOracle struct {
	decision domain.AgentDecision
	err      error
	got      oracle.Request
}

func (o *fixedOracle) Evaluate(_ context.Context, req oracle.Request) (domain.AgentDecision, error) {
	o.got = req
	return o.decision, o.err
}

type failingMarket struct{}

func (failingMarket) MarketData(context.Context, []string) (*domain.MarketData, error) {
	return nil, errors.New("market down")
}

func (failingMarket) Sentiment(context.Context, string) (*domain.SentimentData, error) {
	return nil, errors.New("sentiment down")
}

func swap() domain.SwapTransaction {
	return domain.SwapTransaction{
		TokenIn:            "USDC",
		TokenOut:           "SOL",
		AmountIn:           50000,
		EstimatedAmountOut: 1400,
		Slippage:           0.05,
		PoolName:           "Orca",
		Signature:          "sig",
	}
}

func TestOpportunityEvaluator_Evaluate(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o := &fixedOracle{decision: domain.AgentDecision{OpportunityScore: 0.92, Action: domain.ActionEnter, RiskLevel: domain.RiskHigh}}

	e := NewOpportunityEvaluator(
		market.NewCollector(rand.New(rand.NewSource(1))),
		market.NewSentimentAnalyzer(rand.New(rand.NewSource(2))),
		o, logger)

	ev, err := e.Evaluate(context.Background(), swap())
	require.NoError(t, err)

	assert.Equal(t, o.decision, ev.Decision)
	assert.Equal(t, oracle.SourceHeuristic, ev.Source)
	require.NotNil(t, ev.Market)
	require.NotNil(t, ev.Sentiment)
	assert.Contains(t, ev.Market.Prices, "USDC")
	assert.Contains(t, ev.Market.Prices, "SOL")
	assert.Equal(t, "SOL", ev.Sentiment.Token)

	var md domain.MarketData
	require.NoError(t, json.Unmarshal(o.got.MarketJSON, &md))
	assert.Len(t, md.Prices, 2)
	assert.NotEmpty(t, o.got.SentimentJSON)
	assert.Equal(t, "sig", o.got.Tx.Signature)
}

func TestOpportunityEvaluator_DegradesWithoutSnapshots(t *testing.T) {
	logger, hook := test.NewNullLogger()
	o := &fixedOracle{decision: domain.AgentDecision{OpportunityScore: 0.5, Action: domain.ActionSkip, RiskLevel: domain.RiskLow}}

	e := NewOpportunityEvaluator(failingMarket{}, failingMarket{}, o, logger)

	ev, err := e.Evaluate(context.Background(), swap())
	require.NoError(t, err)
	assert.Nil(t, ev.Market)
	assert.Nil(t, ev.Sentiment)
	assert.Nil(t, o.got.MarketJSON)
	assert.Nil(t, o.got.SentimentJSON)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestOpportunityEvaluator_OracleError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	o := &fixedOracle{err: errors.New("boom")}

	e := NewOpportunityEvaluator(failingMarket{}, failingMarket{}, o, logger)

	_, err := e.Evaluate(context.Background(), swap())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOracle)
}

func TestOpportunityEvaluator_ReportsOracleSource(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := oracle.NewHeuristic(rand.New(rand.NewSource(3)))

	e := NewOpportunityEvaluator(
		market.NewCollector(rand.New(rand.NewSource(4))),
		market.NewSentimentAnalyzer(rand.New(rand.NewSource(5))),
		h, logger)

	ev, err := e.Evaluate(context.Background(), swap())
	require.NoError(t, err)
	assert.Equal(t, h.LastSource(), ev.Source)
	assert.NoError(t, oracle.Validate(ev.Decision))
}

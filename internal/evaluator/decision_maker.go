package evaluator

import (
	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/idhash"
)

// Strategy selection cutoffs.
const (
	sandwichMinSlippage = 0.03
	sandwichMinAmount   = 5.0
	snipeMinScore       = 0.85

	// minOutSlippageFactor widens the observed slippage for the min-out bound.
	minOutSlippageFactor = 1.5
)

// DecisionMaker is the second gate after the scorer.
type DecisionMaker struct {
	minProfit float64
}

// NewDecisionMaker creates a decision maker rejecting profitability below minProfit.
func NewDecisionMaker(minProfit float64) *DecisionMaker {
	return &DecisionMaker{minProfit: minProfit}
}

// Decide returns a TradeDecision, or false when the opportunity is skipped.
func (m *DecisionMaker) Decide(d domain.AgentDecision, score domain.OpportunityScore, tx domain.SwapTransaction) (*domain.TradeDecision, bool) {
	if d.Action != domain.ActionEnter {
		return nil, false
	}
	if score.Profitability < m.minProfit {
		return nil, false
	}

	strategy := SelectStrategy(tx, score)

	return &domain.TradeDecision{
		ID:              DecisionID(tx, strategy),
		TokenIn:         tx.TokenIn,
		TokenOut:        tx.TokenOut,
		AmountIn:        tx.AmountIn,
		ExpectedMinOut:  ExpectedMinOut(tx.EstimatedAmountOut, tx.Slippage),
		ConfidenceScore: score.Confidence,
		RiskLevel:       score.RiskLevel,
		Strategy:        strategy,
	}, true
}

// SelectStrategy picks sandwich for large slippage on non-trivial size, snipe for
// high scores, arbitrage otherwise.
func SelectStrategy(tx domain.SwapTransaction, score domain.OpportunityScore) domain.Strategy {
	switch {
	case tx.Slippage > sandwichMinSlippage && tx.AmountIn > sandwichMinAmount:
		return domain.StrategySandwich
	case score.MEVScore > snipeMinScore:
		return domain.StrategySnipe
	default:
		return domain.StrategyArbitrage
	}
}

// ExpectedMinOut returns estimated × (1 − slippage × 1.5).
func ExpectedMinOut(estimated, slippage float64) float64 {
	return estimated * (1 - slippage*minOutSlippageFactor)
}

// DecisionID is stable for a given source swap and strategy. Swaps without a
// chain signature (simulated feeds) are keyed by their content.
func DecisionID(tx domain.SwapTransaction, strategy domain.Strategy) string {
	sig := tx.Signature
	if sig == "" {
		sig = idhash.ComputeSwapKey(tx.TokenIn, tx.TokenOut, tx.AmountIn, tx.WalletAddress, tx.Timestamp)
	}
	return idhash.ComputeDecisionID(sig, tx.Slot, strategy.String())
}

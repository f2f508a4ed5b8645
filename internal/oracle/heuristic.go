package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"solana-mev-agent/internal/domain"
)

var (
	errScoreRange    = errors.New("opportunity_score out of range")
	errUnknownAction = errors.New("unknown action")
	errUnknownRisk   = errors.New("unknown risk_level")
)

// Heuristic thresholds.
const (
	enterThreshold      = 0.7
	highRiskThreshold   = 0.85
	mediumRiskThreshold = 0.75
)

// Heuristic scores transactions locally from size, slippage, venue and pair.
type Heuristic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic creates a heuristic oracle. rng supplies the [0, 0.2) jitter term.
func NewHeuristic(rng *rand.Rand) *Heuristic {
	return &Heuristic{rng: rng}
}

var _ Oracle = (*Heuristic)(nil)

// Evaluate never fails.
func (h *Heuristic) Evaluate(_ context.Context, req Request) (domain.AgentDecision, error) {
	return h.decide(req.Tx), nil
}

// LastSource implements Sourced.
func (h *Heuristic) LastSource() string {
	return SourceHeuristic
}

func (h *Heuristic) decide(tx domain.SwapTransaction) domain.AgentDecision {
	h.mu.Lock()
	jitter := h.rng.Float64() * 0.2
	h.mu.Unlock()

	score := Score(tx, jitter)

	action := domain.ActionSkip
	outlook := "low probability of success"
	if score > enterThreshold {
		action = domain.ActionEnter
		outlook = "potential opportunity"
	}

	risk := domain.RiskLow
	switch {
	case score > highRiskThreshold:
		risk = domain.RiskHigh
	case score > mediumRiskThreshold:
		risk = domain.RiskMedium
	}

	return domain.AgentDecision{
		OpportunityScore: score,
		Action:           action,
		RiskLevel:        risk,
		Reasoning: fmt.Sprintf("Transaction analysis: %g %s -> %s on %s. Transaction size and slippage suggest %s.",
			tx.AmountIn, tx.TokenIn, tx.TokenOut, tx.PoolName, outlook),
	}
}

// Score is the deterministic part of the heuristic plus jitter, clamped to [0,1].
func Score(tx domain.SwapTransaction, jitter float64) float64 {
	size := min(tx.AmountIn/100, 1) * 0.4
	slip := min(tx.Slippage*100, 1) * 0.3

	venue := 0.1
	switch tx.PoolName {
	case "Orca":
		venue = 0.2
	case "Raydium":
		venue = 0.15
	}

	pair := 0.1
	switch {
	case tx.TokenIn == "SOL" && tx.TokenOut == "USDC":
		pair = 0.2
	case tx.TokenIn == "USDC" && tx.TokenOut == "BONK":
		pair = 0.3
	}

	return max(0, min(1, size+slip+venue+pair+jitter))
}

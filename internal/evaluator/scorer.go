// Package evaluator turns scored swaps into trade decisions.
package evaluator

import "solana-mev-agent/internal/domain"

// Thresholds are the gate parameters loaded from config.
type Thresholds struct {
	MinOpportunityScore float64 // scorer gate on mev_score
	MaxRiskLevel        uint8   // scorer gate on risk_level
	MinProfitThreshold  float64 // decision maker gate on profitability
	MaxRiskThreshold    uint8   // risk analyzer tolerance, recorded only
}

// DefaultThresholds returns the built-in gate values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinOpportunityScore: 0.8,
		MaxRiskLevel:        2,
		MinProfitThreshold:  0.5,
		MaxRiskThreshold:    2,
	}
}

// Scorer derives an OpportunityScore from an oracle verdict.
type Scorer struct {
	minScore float64
	maxRisk  uint8
}

// NewScorer creates a scorer gating on minScore and maxRisk.
func NewScorer(minScore float64, maxRisk uint8) *Scorer {
	return &Scorer{minScore: minScore, maxRisk: maxRisk}
}

// Score is a pure function of d and tx.
func (s *Scorer) Score(d domain.AgentDecision, tx domain.SwapTransaction) domain.OpportunityScore {
	return domain.OpportunityScore{
		MEVScore:      d.OpportunityScore,
		Confidence:    confidence(d.OpportunityScore),
		Profitability: tx.Slippage * tx.AmountIn * 0.01,
		RiskLevel:     RiskLevel(d.RiskLevel),
	}
}

// ShouldExecute reports whether score clears both scorer thresholds.
func (s *Scorer) ShouldExecute(score domain.OpportunityScore) bool {
	return score.MEVScore >= s.minScore && score.RiskLevel <= s.maxRisk
}

// RiskLevel maps the oracle's risk label to 1..3. Unknown labels map to 0.
func RiskLevel(label string) uint8 {
	switch label {
	case domain.RiskLow:
		return 1
	case domain.RiskMedium:
		return 2
	case domain.RiskHigh:
		return 3
	}
	return 0
}

func confidence(score float64) float64 {
	switch {
	case score > 0.9:
		return 0.95
	case score > 0.8:
		return 0.85
	case score > 0.7:
		return 0.75
	default:
		return 0.5
	}
}

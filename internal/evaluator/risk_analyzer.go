package evaluator

import (
	"math"

	"solana-mev-agent/internal/domain"
)

const (
	minRisk  uint8 = 1
	baseRisk       = 2
	maxRisk  uint8 = 3
)

// RiskAnalyzer produces an independent 1..3 risk assessment.
// It does not gate trades.
type RiskAnalyzer struct {
	tolerance uint8
}

// NewRiskAnalyzer creates an analyzer with tolerance clamped to 1..3.
func NewRiskAnalyzer(tolerance uint8) *RiskAnalyzer {
	return &RiskAnalyzer{tolerance: clampRisk(int(tolerance))}
}

// Assess scores tx against the optional snapshots.
func (a *RiskAnalyzer) Assess(tx domain.SwapTransaction, market *domain.MarketData, sentiment *domain.SentimentData) uint8 {
	risk := baseRisk

	switch {
	case tx.AmountIn > 100:
		risk++
	case tx.AmountIn < 10:
		risk--
	}

	switch {
	case tx.Slippage > 0.03:
		risk++
	case tx.Slippage < 0.01:
		risk--
	}

	if sentiment != nil {
		switch {
		case sentiment.SentimentScore < -0.3:
			risk++
		case sentiment.SentimentScore > 0.7:
			risk--
		}
	}

	if market != nil {
		if p, ok := market.Prices[tx.TokenOut]; ok && math.Abs(p.Change24h) > 10 {
			risk++
		}
	}

	return clampRisk(risk)
}

// IsWithinTolerance reports whether level is at or below the configured tolerance.
func (a *RiskAnalyzer) IsWithinTolerance(level uint8) bool {
	return level <= a.tolerance
}

// Tolerance returns the clamped tolerance.
func (a *RiskAnalyzer) Tolerance() uint8 {
	return a.tolerance
}

func clampRisk(v int) uint8 {
	if v < int(minRisk) {
		return minRisk
	}
	if v > int(maxRisk) {
		return maxRisk
	}
	return uint8(v)
}

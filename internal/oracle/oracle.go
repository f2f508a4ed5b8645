// Package oracle scores swap transactions for extractable value.
package oracle

import (
	"context"
	"encoding/json"

	"solana-mev-agent/internal/domain"
)

// Sources reported in EvaluationRecord.OracleSource.
const (
	SourceHeuristic = "heuristic"
	SourceRemote    = "remote"
	SourceFallback  = "fallback"
)

// Request is one scoring call. The snapshots are JSON-serialized and may be nil
// when the corresponding fetch failed.
type Request struct {
	Tx            domain.SwapTransaction
	MarketJSON    json.RawMessage
	SentimentJSON json.RawMessage
}

// Oracle produces an AgentDecision for a transaction.
type Oracle interface {
	Evaluate(ctx context.Context, req Request) (domain.AgentDecision, error)
}

// Sourced is implemented by oracles that report where the last verdict came from.
type Sourced interface {
	LastSource() string
}

// Validate checks the response contract: score in [0,1], known action and risk.
func Validate(d domain.AgentDecision) error {
	if d.OpportunityScore < 0 || d.OpportunityScore > 1 {
		return domain.NewError(domain.ErrOracle, "oracle.validate", errScoreRange)
	}
	switch d.Action {
	case domain.ActionEnter, domain.ActionSkip:
	default:
		return domain.NewError(domain.ErrOracle, "oracle.validate", errUnknownAction)
	}
	switch d.RiskLevel {
	case domain.RiskLow, domain.RiskMedium, domain.RiskHigh:
	default:
		return domain.NewError(domain.ErrOracle, "oracle.validate", errUnknownRisk)
	}
	return nil
}

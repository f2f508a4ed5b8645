package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/storage"
)

// EvaluationStore implements storage.EvaluationStore using ClickHouse.
type EvaluationStore struct {
	conn *Conn
}

// NewEvaluationStore creates a new EvaluationStore.
func NewEvaluationStore(conn *Conn) *EvaluationStore {
	return &EvaluationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EvaluationStore = (*EvaluationStore)(nil)

// Insert adds one evaluation row. MergeTree keeps every row.
func (s *EvaluationStore) Insert(ctx context.Context, r *domain.EvaluationRecord) error {
	if r == nil {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO opportunity_evaluations (
			signature, slot, token_in, token_out, pool_name,
			amount_in, slippage, oracle_source,
			opportunity_score, action, agent_risk,
			mev_score, confidence, profitability, risk_level,
			analyzed_risk, should_execute, strategy, evaluated_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?
		)
	`

	var shouldExecute uint8
	if r.ShouldExecute {
		shouldExecute = 1
	}

	start := time.Now()
	err := s.conn.Exec(ctx, query,
		r.Signature, r.Slot, r.TokenIn, r.TokenOut, r.PoolName,
		r.AmountIn, r.Slippage, r.OracleSource,
		r.OpportunityScore, r.Action, r.AgentRisk,
		r.MEVScore, r.Confidence, r.Profitability, r.RiskLevel,
		r.AnalyzedRisk, shouldExecute, r.Strategy, r.EvaluatedAt,
	)
	observability.RecordDBQuery("clickhouse", "insert_evaluation", time.Since(start).Seconds())
	if err != nil {
		observability.RecordDBError("clickhouse", "insert_evaluation")
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves rows evaluated within [start, end], ordered by evaluated_at ASC.
func (s *EvaluationStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.EvaluationRecord, error) {
	query := `
		SELECT
			signature, slot, token_in, token_out, pool_name,
			amount_in, slippage, oracle_source,
			opportunity_score, action, agent_risk,
			mev_score, confidence, profitability, risk_level,
			analyzed_risk, should_execute, strategy, evaluated_at
		FROM opportunity_evaluations
		WHERE evaluated_at >= ? AND evaluated_at <= ?
		ORDER BY evaluated_at ASC, signature ASC
	`

	began := time.Now()
	rows, err := s.conn.Query(ctx, query, start, end)
	observability.RecordDBQuery("clickhouse", "evaluations_by_time", time.Since(began).Seconds())
	if err != nil {
		observability.RecordDBError("clickhouse", "evaluations_by_time")
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var result []*domain.EvaluationRecord
	for rows.Next() {
		var (
			r             domain.EvaluationRecord
			shouldExecute uint8
		)
		err := rows.Scan(
			&r.Signature, &r.Slot, &r.TokenIn, &r.TokenOut, &r.PoolName,
			&r.AmountIn, &r.Slippage, &r.OracleSource,
			&r.OpportunityScore, &r.Action, &r.AgentRisk,
			&r.MEVScore, &r.Confidence, &r.Profitability, &r.RiskLevel,
			&r.AnalyzedRisk, &shouldExecute, &r.Strategy, &r.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		r.ShouldExecute = shouldExecute == 1
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return result, nil
}

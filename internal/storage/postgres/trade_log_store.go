package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using PostgreSQL.
type TradeLogStore struct {
	pool *Pool
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(pool *Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

// Append adds a record. Returns ErrDuplicateKey if id exists.
func (s *TradeLogStore) Append(ctx context.Context, l *domain.TradeLog) error {
	if err := storage.ValidateTradeLog(l); err != nil {
		return err
	}

	query := `
		INSERT INTO trade_logs (
			id, logged_at, decision_id, token_in, token_out,
			amount_in, amount_out, strategy, tx_signature,
			success, profit, notes
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12
		)
	`

	var decisionID *string
	if l.DecisionID != "" {
		decisionID = &l.DecisionID
	}

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		l.ID, l.Timestamp, decisionID, l.TokenIn, l.TokenOut,
		l.AmountIn, l.AmountOut, string(l.Strategy), l.TxSignature,
		l.Success, l.Profit, l.Notes,
	)
	observability.RecordDBQuery("postgres", "append_trade_log", time.Since(start).Seconds())
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		observability.RecordDBError("postgres", "append_trade_log")
		return fmt.Errorf("insert trade log: %w", err)
	}
	return nil
}

// History returns every record in insertion order.
func (s *TradeLogStore) History(ctx context.Context) ([]*domain.TradeLog, error) {
	query := `
		SELECT
			id, logged_at, decision_id, token_in, token_out,
			amount_in, amount_out, strategy, tx_signature,
			success, profit, notes
		FROM trade_logs
		ORDER BY seq ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query)
	observability.RecordDBQuery("postgres", "trade_log_history", time.Since(start).Seconds())
	if err != nil {
		observability.RecordDBError("postgres", "trade_log_history")
		return nil, fmt.Errorf("query trade logs: %w", err)
	}
	defer rows.Close()

	return scanTradeLogs(rows)
}

func scanTradeLogs(rows pgx.Rows) ([]*domain.TradeLog, error) {
	var result []*domain.TradeLog
	for rows.Next() {
		var (
			l          domain.TradeLog
			decisionID *string
			strategy   string
		)
		err := rows.Scan(
			&l.ID, &l.Timestamp, &decisionID, &l.TokenIn, &l.TokenOut,
			&l.AmountIn, &l.AmountOut, &strategy, &l.TxSignature,
			&l.Success, &l.Profit, &l.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade log: %w", err)
		}
		if decisionID != nil {
			l.DecisionID = *decisionID
		}
		l.Strategy = domain.Strategy(strategy)
		l.Timestamp = l.Timestamp.UTC()
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade logs: %w", err)
	}
	return result, nil
}

package domain

import "time"

// TradeLog is one append-only record per execution attempt.
type TradeLog struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	DecisionID  string    `json:"decision_id,omitempty"`
	TokenIn     string    `json:"token_in"`
	TokenOut    string    `json:"token_out"`
	AmountIn    float64   `json:"amount_in"`
	AmountOut   *float64  `json:"amount_out,omitempty"`
	Strategy    Strategy  `json:"strategy"`
	TxSignature *string   `json:"tx_signature,omitempty"`
	Success     bool      `json:"success"`
	Profit      *float64  `json:"profit,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

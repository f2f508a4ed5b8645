package domain

// Agent actions.
const (
	ActionEnter = "enter"
	ActionSkip  = "skip"
)

// Agent risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// AgentDecision is the scoring oracle's verdict for one transaction.
type AgentDecision struct {
	OpportunityScore float64 `json:"opportunity_score"` // 0..1
	Action           string  `json:"action"`            // "enter" | "skip"
	RiskLevel        string  `json:"risk_level"`        // "low" | "medium" | "high"
	Reasoning        string  `json:"reasoning"`
}

// OpportunityScore is derived deterministically from an AgentDecision and its transaction.
type OpportunityScore struct {
	MEVScore      float64 `json:"mev_score"`
	Confidence    float64 `json:"confidence"`
	Profitability float64 `json:"profitability"`
	RiskLevel     uint8   `json:"risk_level"` // 0..3
}

// TradeDecision is the terminal input to the executor.
type TradeDecision struct {
	ID              string   `json:"id"` // deterministic, see idhash.ComputeDecisionID
	TokenIn         string   `json:"token_in"`
	TokenOut        string   `json:"token_out"`
	AmountIn        float64  `json:"amount_in"`
	ExpectedMinOut  float64  `json:"expected_min_out"`
	ConfidenceScore float64  `json:"confidence_score"`
	RiskLevel       uint8    `json:"risk_level"`
	Strategy        Strategy `json:"strategy"`
}

// Pair returns "IN/OUT" for log fields.
func (d *TradeDecision) Pair() string {
	return d.TokenIn + "/" + d.TokenOut
}

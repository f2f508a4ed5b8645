package domain

// EvaluationRecord captures one pass through the scoring gates.
// Stored for analytics only; nothing reads it back on the hot path.
type EvaluationRecord struct {
	Signature        string
	Slot             int64
	TokenIn          string
	TokenOut         string
	PoolName         string
	AmountIn         float64
	Slippage         float64
	OracleSource     string // "remote" | "heuristic"
	OpportunityScore float64
	Action           string
	AgentRisk        string
	MEVScore         float64
	Confidence       float64
	Profitability    float64
	RiskLevel        uint8
	AnalyzedRisk     uint8 // RiskAnalyzer assessment, 1..3
	ShouldExecute    bool
	Strategy         *string // set when a TradeDecision was emitted
	EvaluatedAt      int64   // Unix milliseconds
}

package solana

// Block represents a Solana block.
type Block struct {
	Slot         int64
	BlockTime    *int64
	Transactions []Transaction
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// SimulationResult is the value of a simulateTransaction response.
type SimulationResult struct {
	Err           interface{}
	Logs          []string
	UnitsConsumed uint64
}

// Succeeded reports whether the simulated transaction ran without error.
func (r *SimulationResult) Succeeded() bool {
	return r.Err == nil
}

// Version is the node software version.
type Version struct {
	SolanaCore string `json:"solana-core"`
	FeatureSet uint32 `json:"feature-set"`
}

// LamportsPerSOL converts lamports to SOL.
const LamportsPerSOL = 1_000_000_000

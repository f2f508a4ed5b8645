package domain

// SwapTransaction is a normalized DEX swap observed on chain.
// Created once by the swap stream and read-only afterwards.
type SwapTransaction struct {
	TokenIn            string  `json:"token_in"`             // registry symbol, or mint when unknown
	TokenOut           string  `json:"token_out"`            // registry symbol, or mint when unknown
	AmountIn           float64 `json:"amount_in"`            // decimal-adjusted input amount
	EstimatedAmountOut float64 `json:"estimated_amount_out"` // decimal-adjusted output amount
	Slippage           float64 `json:"slippage"`             // |expected-actual|/expected, 0.01 when unknown
	PoolName           string  `json:"pool_name"`            // venue: "Raydium" | "Orca" | "Jupiter"
	WalletAddress      string  `json:"wallet_address"`       // fee payer / signer
	Timestamp          int64   `json:"timestamp"`            // Unix seconds
	Signature          string  `json:"signature,omitempty"`  // source transaction signature
	Slot               int64   `json:"slot,omitempty"`       // source slot
}

// Pair returns "IN/OUT" for log fields.
func (s *SwapTransaction) Pair() string {
	return s.TokenIn + "/" + s.TokenOut
}

// DefaultSlippage is used when a swap carries no expected-output hint.
const DefaultSlippage = 0.01

// ComputeSlippage returns |expected-actual|/expected, or DefaultSlippage when
// expected is not positive.
func ComputeSlippage(expected, actual float64) float64 {
	if expected <= 0 {
		return DefaultSlippage
	}
	d := expected - actual
	if d < 0 {
		d = -d
	}
	return d / expected
}

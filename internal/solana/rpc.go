package solana

import "context"

// RPCClient defines the Solana JSON-RPC calls used by the stream and executor.
type RPCClient interface {
	// GetBlock retrieves a block with full transaction details.
	GetBlock(ctx context.Context, slot int64) (*Block, error)

	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetAccountInfo retrieves raw account data. Returns nil if not found.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// SimulateTransaction dry-runs a serialized transaction without signature verification.
	SimulateTransaction(ctx context.Context, tx []byte) (*SimulationResult, error)

	// SendTransaction submits a signed serialized transaction and returns its signature.
	SendTransaction(ctx context.Context, tx []byte) (string, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// Signer returns the fee payer, or "" when the message is missing.
func (t *Transaction) Signer() string {
	if t.Message == nil || len(t.Message.AccountKeys) == 0 {
		return ""
	}
	return t.Message.AccountKeys[0]
}

// Failed reports whether the transaction executed with an error.
func (t *Transaction) Failed() bool {
	return t.Meta != nil && t.Meta.Err != nil
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	Fee               uint64
	LogMessages       []string
	PreBalances       []uint64 // lamports, indexed like AccountKeys
	PostBalances      []uint64
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is an SPL token account balance at a point in a transaction.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	Amount       string // raw integer amount
	Decimals     int
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	// AccountKeys holds static keys followed by loaded writable and readonly
	// addresses, matching the indexes used by balances.
	AccountKeys []string
}

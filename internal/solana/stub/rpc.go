package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-mev-agent/internal/solana"
)

// ErrNotFound is returned when a transaction or block is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Transactions map[string]*solana.Transaction
	Blocks       map[int64]*solana.Block
	Accounts     map[string]*solana.AccountInfo

	// BlockErrors makes GetBlock fail for the given slots.
	BlockErrors map[int64]error

	// SimulateResult is returned by SimulateTransaction when SimulateErr is nil.
	SimulateResult *solana.SimulationResult
	SimulateErr    error
	SendErr        error

	Simulated [][]byte
	Sent      [][]byte
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Transactions:   make(map[string]*solana.Transaction),
		Blocks:         make(map[int64]*solana.Block),
		Accounts:       make(map[string]*solana.AccountInfo),
		BlockErrors:    make(map[int64]error),
		SimulateResult: &solana.SimulationResult{},
	}
}

var _ solana.RPCClient = (*RPCClient)(nil)

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, nil
	}
	return tx, nil
}

// GetBlock retrieves a block by slot from the stub store.
func (c *RPCClient) GetBlock(_ context.Context, slot int64) (*solana.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.BlockErrors[slot]; err != nil {
		return nil, err
	}
	block, ok := c.Blocks[slot]
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", slot, ErrNotFound)
	}
	return block, nil
}

// GetAccountInfo returns the stored account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// SimulateTransaction records tx and returns the configured result.
func (c *RPCClient) SimulateTransaction(_ context.Context, tx []byte) (*solana.SimulationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Simulated = append(c.Simulated, append([]byte(nil), tx...))
	if c.SimulateErr != nil {
		return nil, c.SimulateErr
	}
	return c.SimulateResult, nil
}

// SendTransaction records tx and returns a deterministic signature.
func (c *RPCClient) SendTransaction(_ context.Context, tx []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, append([]byte(nil), tx...))
	return fmt.Sprintf("stub-sig-%d", len(c.Sent)), nil
}

// SentCount returns the number of submitted transactions.
func (c *RPCClient) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

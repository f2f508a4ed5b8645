// Package tokens maps token symbols to SPL mint addresses.
package tokens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Well-known mint addresses.
const (
	MintSOL  = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	MintRAY  = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
	MintSRM  = "SRMuApVNdxXokk5GT7XD5cUUgXMBCoAz2LHeuAoKWRt"
	MintMNGO = "MangoCzJ36AjZyKwVj3VnYU4GTonjfVEnJmvvWaxLac"
)

// ErrUnknownToken is returned when a symbol has no known mint.
var ErrUnknownToken = errors.New("unknown token")

// Registry is an immutable symbol <-> mint table.
type Registry struct {
	bySymbol map[string]string
	byMint   map[string]string
}

// NewRegistry builds a registry from symbol -> mint pairs.
// Symbols are stored upper-case.
func NewRegistry(entries map[string]string) *Registry {
	r := &Registry{
		bySymbol: make(map[string]string, len(entries)),
		byMint:   make(map[string]string, len(entries)),
	}
	for sym, mint := range entries {
		sym = strings.ToUpper(sym)
		r.bySymbol[sym] = mint
		r.byMint[mint] = sym
	}
	return r
}

// Default returns the built-in registry.
func Default() *Registry {
	return NewRegistry(map[string]string{
		"SOL":  MintSOL,
		"USDC": MintUSDC,
		"BONK": MintBONK,
		"USDT": MintUSDT,
		"RAY":  MintRAY,
		"SRM":  MintSRM,
		"MNGO": MintMNGO,
	})
}

// Mint resolves a symbol (case-insensitive) to its mint.
// A value that is already a valid 32-byte base58 address is returned unchanged.
func (r *Registry) Mint(symbol string) (string, error) {
	if mint, ok := r.bySymbol[strings.ToUpper(symbol)]; ok {
		return mint, nil
	}
	if IsAddress(symbol) {
		return symbol, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
}

// Symbol returns the symbol for mint, or the mint itself when unknown.
func (r *Registry) Symbol(mint string) string {
	if sym, ok := r.byMint[mint]; ok {
		return sym
	}
	return mint
}

// IsAddress reports whether s decodes to a 32-byte public key.
func IsAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}

package discovery

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/solana"
)

// Known DEX program IDs.
const (
	// RaydiumAMMV4 is the Raydium AMM v4 program ID.
	RaydiumAMMV4 = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	// RaydiumCLMM is the Raydium concentrated liquidity program ID.
	RaydiumCLMM = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	// OrcaWhirlpool is the Orca Whirlpool program ID.
	OrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	// JupiterV6 is the Jupiter aggregator v6 program ID.
	JupiterV6 = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
)

// Venue names carried in SwapTransaction.PoolName.
const (
	VenueRaydium = "Raydium"
	VenueOrca    = "Orca"
	VenueJupiter = "Jupiter"
)

// WSOL is the Wrapped SOL mint address.
const WSOL = "So11111111111111111111111111111111111111112"

const solDecimals = 9

// Decode failures. Both wrap domain.ErrDecode.
var (
	ErrNotDEX  = errors.New("no known DEX program")
	ErrNoSwap  = errors.New("no swap balance change")
	ErrFailed  = errors.New("transaction failed on chain")
	ErrPartial = errors.New("missing transaction meta or message")
)

// SymbolResolver maps mints to display symbols.
type SymbolResolver interface {
	Symbol(mint string) string
}

// DEXParser decodes swaps from transactions that touch registered DEX programs.
type DEXParser struct {
	venues  map[string]string // programID -> venue
	symbols SymbolResolver
}

// NewDEXParser creates a parser with the default venues registered.
// A nil resolver keeps raw mints as token names.
func NewDEXParser(symbols SymbolResolver) *DEXParser {
	p := &DEXParser{
		venues:  make(map[string]string),
		symbols: symbols,
	}

	p.RegisterProgram(RaydiumAMMV4, VenueRaydium)
	p.RegisterProgram(RaydiumCLMM, VenueRaydium)
	p.RegisterProgram(OrcaWhirlpool, VenueOrca)
	p.RegisterProgram(JupiterV6, VenueJupiter)

	return p
}

// RegisterProgram maps a program ID to a venue name.
func (p *DEXParser) RegisterProgram(programID, venue string) {
	p.venues[programID] = venue
}

// Venue returns the venue of the first known program in tx.
// A Jupiter route wins over the pools it touches.
func (p *DEXParser) Venue(tx *solana.Transaction) (string, bool) {
	if tx == nil || tx.Message == nil {
		return "", false
	}
	found := ""
	for _, key := range tx.Message.AccountKeys {
		venue, ok := p.venues[key]
		if !ok {
			continue
		}
		if key == JupiterV6 {
			return venue, true
		}
		if found == "" {
			found = venue
		}
	}
	return found, found != ""
}

// Parse normalizes tx into a SwapTransaction. Errors wrap domain.ErrDecode.
func (p *DEXParser) Parse(tx *solana.Transaction) (*domain.SwapTransaction, error) {
	const op = "discovery.Parse"

	if tx == nil || tx.Meta == nil || tx.Message == nil {
		return nil, domain.NewError(domain.ErrDecode, op, ErrPartial)
	}
	if tx.Failed() {
		return nil, domain.NewError(domain.ErrDecode, op, ErrFailed)
	}
	venue, ok := p.Venue(tx)
	if !ok {
		return nil, domain.NewError(domain.ErrDecode, op, ErrNotDEX)
	}

	signer := tx.Signer()
	in, out, err := swapLegs(tx, signer)
	if err != nil {
		return nil, domain.NewError(domain.ErrDecode, op, err)
	}

	amountIn, _ := in.amount.Float64()
	amountOut, _ := out.amount.Float64()

	// A ray_log in a Jupiter route describes one hop, not the whole swap.
	slippage := domain.DefaultSlippage
	if rl, ok := FindRayLog(tx.Meta.LogMessages); ok && venue == VenueRaydium && rl.Expected() > 0 {
		expected, _ := decimal.NewFromBigInt(new(big.Int).SetUint64(rl.Expected()), -int32(out.decimals)).Float64()
		slippage = domain.ComputeSlippage(expected, amountOut)
	}

	return &domain.SwapTransaction{
		TokenIn:            p.symbol(in.mint),
		TokenOut:           p.symbol(out.mint),
		AmountIn:           amountIn,
		EstimatedAmountOut: amountOut,
		Slippage:           slippage,
		PoolName:           venue,
		WalletAddress:      signer,
		Timestamp:          tx.BlockTime,
		Signature:          tx.Signature,
		Slot:               tx.Slot,
	}, nil
}

func (p *DEXParser) symbol(mint string) string {
	if p.symbols == nil {
		return mint
	}
	return p.symbols.Symbol(mint)
}

type leg struct {
	mint     string
	amount   decimal.Decimal // absolute, decimal-adjusted
	decimals int
}

// swapLegs derives the input and output legs from the signer's balance changes.
// The largest decrease is the input and the largest increase the output. When a
// side has no token movement, the signer's lamport change net of fee stands in
// as WSOL.
func swapLegs(tx *solana.Transaction, signer string) (leg, leg, error) {
	type acc struct {
		mint     string
		decimals int
		delta    decimal.Decimal
	}
	byMint := make(map[string]*acc)
	order := make([]string, 0, 2)

	apply := func(balances []solana.TokenBalance, sign int64) error {
		for _, b := range balances {
			if b.Owner != signer {
				continue
			}
			raw, err := decimal.NewFromString(b.Amount)
			if err != nil {
				return fmt.Errorf("token amount %q: %w", b.Amount, err)
			}
			a, ok := byMint[b.Mint]
			if !ok {
				a = &acc{mint: b.Mint, decimals: b.Decimals}
				byMint[b.Mint] = a
				order = append(order, b.Mint)
			}
			a.delta = a.delta.Add(raw.Shift(-int32(b.Decimals)).Mul(decimal.NewFromInt(sign)))
		}
		return nil
	}
	if err := apply(tx.Meta.PreTokenBalances, -1); err != nil {
		return leg{}, leg{}, err
	}
	if err := apply(tx.Meta.PostTokenBalances, 1); err != nil {
		return leg{}, leg{}, err
	}

	var in, out leg
	for _, mint := range order {
		a := byMint[mint]
		switch {
		case a.delta.IsNegative() && (in.mint == "" || a.delta.Abs().GreaterThan(in.amount)):
			in = leg{mint: a.mint, amount: a.delta.Abs(), decimals: a.decimals}
		case a.delta.IsPositive() && (out.mint == "" || a.delta.GreaterThan(out.amount)):
			out = leg{mint: a.mint, amount: a.delta, decimals: a.decimals}
		}
	}

	if in.mint == "" || out.mint == "" {
		native := nativeDelta(tx)
		switch {
		case in.mint == "" && native.IsNegative() && out.mint != WSOL:
			in = leg{mint: WSOL, amount: native.Abs(), decimals: solDecimals}
		case out.mint == "" && native.IsPositive() && in.mint != WSOL:
			out = leg{mint: WSOL, amount: native, decimals: solDecimals}
		}
	}

	if in.mint == "" || out.mint == "" || in.mint == out.mint {
		return leg{}, leg{}, ErrNoSwap
	}
	return in, out, nil
}

// nativeDelta returns the fee payer's SOL change with the fee added back.
func nativeDelta(tx *solana.Transaction) decimal.Decimal {
	m := tx.Meta
	if len(m.PreBalances) == 0 || len(m.PostBalances) == 0 {
		return decimal.Zero
	}
	pre := decimal.NewFromBigInt(new(big.Int).SetUint64(m.PreBalances[0]), 0)
	post := decimal.NewFromBigInt(new(big.Int).SetUint64(m.PostBalances[0]), 0)
	fee := decimal.NewFromBigInt(new(big.Int).SetUint64(m.Fee), 0)
	return post.Sub(pre).Add(fee).Shift(-solDecimals)
}

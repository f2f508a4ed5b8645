package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Program IDs used for address derivation.
const (
	TokenProgramID                  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	AssociatedTokenAccountProgramID = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
)

// ErrNoViableBump is returned when every bump seed lands on the curve.
var ErrNoViableBump = errors.New("no viable bump seed")

// FindProgramAddress derives a Program Derived Address.
// Seeds are hashed with a bump, the program ID and the "ProgramDerivedAddress"
// marker; the first bump (from 255 down) giving an off-curve point wins.
func FindProgramAddress(seeds [][]byte, programID []byte) (string, uint8, error) {
	for bump := 255; bump > 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte("ProgramDerivedAddress"))
		sum := h.Sum(nil)

		if !IsOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// AssociatedTokenAddress returns the associated token account of wallet for mint.
func AssociatedTokenAddress(wallet, mint string) (string, error) {
	walletBytes, err := decodeKey(wallet)
	if err != nil {
		return "", fmt.Errorf("wallet: %w", err)
	}
	mintBytes, err := decodeKey(mint)
	if err != nil {
		return "", fmt.Errorf("mint: %w", err)
	}
	tokenProgram, _ := decodeKey(TokenProgramID)
	ataProgram, _ := decodeKey(AssociatedTokenAccountProgramID)

	addr, _, err := FindProgramAddress([][]byte{walletBytes, tokenProgram, mintBytes}, ataProgram)
	return addr, err
}

func decodeKey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, err
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("expected 32-byte key, got %d", len(b))
	}
	return b, nil
}

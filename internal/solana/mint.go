package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// SPL Token mint account layout (82 bytes):
//   - mintAuthority: COption<Pubkey> (36 bytes: 4 + 32)
//   - supply: u64 (8 bytes)
//   - decimals: u8 (1 byte)
//   - isInitialized: bool (1 byte)
//   - freezeAuthority: COption<Pubkey> (36 bytes)
const (
	mintAccountSize = 82
	mintSupplyOff   = 36
	mintDecimalsOff = 44
)

// Mint is the decoded subset of an SPL token mint account.
type Mint struct {
	Supply   uint64
	Decimals uint8
}

// ParseMint decodes base64 SPL mint account data.
func ParseMint(data string) (*Mint, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	if len(decoded) < mintAccountSize {
		return nil, fmt.Errorf("mint data too short: %d", len(decoded))
	}
	return &Mint{
		Supply:   binary.LittleEndian.Uint64(decoded[mintSupplyOff : mintSupplyOff+8]),
		Decimals: decoded[mintDecimalsOff],
	}, nil
}

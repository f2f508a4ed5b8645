package stub

import (
	"encoding/base64"
	"encoding/binary"

	"solana-mev-agent/internal/solana"
)

// MintAccount returns an SPL mint account with the given decimals and supply.
func MintAccount(decimals uint8, supply uint64) *solana.AccountInfo {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1 // initialized
	return &solana.AccountInfo{
		Lamports: 1_461_600,
		Owner:    "TokenkegQfeZyiNwAJbNbGMPTopcV7e3jLgWPzxP",
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

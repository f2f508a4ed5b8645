// Package idhash computes deterministic identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// ComputeDecisionID computes a deterministic decision id using SHA256.
// Formula: SHA256(signature|slot|strategy)
// Returns hex-encoded hash (64 characters).
func ComputeDecisionID(signature string, slot int64, strategy string) string {
	data := fmt.Sprintf("%s|%d|%s", signature, slot, strategy)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeSwapKey identifies a swap without a chain signature (simulated feeds).
// Formula: SHA256(token_in|token_out|amount_in|wallet|timestamp)
func ComputeSwapKey(tokenIn, tokenOut string, amountIn float64, wallet string, timestamp int64) string {
	data := tokenIn + "|" + tokenOut + "|" +
		strconv.FormatFloat(amountIn, 'g', -1, 64) + "|" +
		wallet + "|" + strconv.FormatInt(timestamp, 10)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

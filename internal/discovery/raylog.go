package discovery

import (
	"encoding/base64"
	"encoding/binary"
	"strings"
)

// Raydium AMM v4 ray_log record types.
const (
	rayLogSwapBaseIn  = 3
	rayLogSwapBaseOut = 4
)

// rayLogSwapSize is log_type plus seven u64 fields.
const rayLogSwapSize = 1 + 7*8

const rayLogPrefix = "Program log: ray_log: "

// RaySwapLog is a decoded Raydium swap ray_log record.
//
// SwapBaseIn:  amount_in, minimum_out, direction, user_source, pool_coin, pool_pc, out_amount
// SwapBaseOut: max_in, amount_out, direction, user_source, pool_coin, pool_pc, deduct_in
type RaySwapLog struct {
	Type   uint8
	Fields [7]uint64
}

// Expected returns the expected output hint: minimum_out for SwapBaseIn,
// amount_out for SwapBaseOut.
func (r *RaySwapLog) Expected() uint64 {
	return r.Fields[1]
}

// FindRayLog returns the first swap ray_log record in logs.
func FindRayLog(logs []string) (*RaySwapLog, bool) {
	for _, line := range logs {
		idx := strings.Index(line, rayLogPrefix)
		if idx < 0 {
			continue
		}
		if rl, ok := ParseRayLog(strings.TrimSpace(line[idx+len(rayLogPrefix):])); ok {
			return rl, true
		}
	}
	return nil, false
}

// ParseRayLog decodes a base64 ray_log payload. Non-swap records are rejected.
func ParseRayLog(payload string) (*RaySwapLog, bool) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) < rayLogSwapSize {
		return nil, false
	}
	if data[0] != rayLogSwapBaseIn && data[0] != rayLogSwapBaseOut {
		return nil, false
	}

	rl := &RaySwapLog{Type: data[0]}
	for i := range rl.Fields {
		rl.Fields[i] = binary.LittleEndian.Uint64(data[1+i*8:])
	}
	return rl, true
}

package solana

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrMalformedTransaction is returned when serialized transaction bytes cannot be parsed.
var ErrMalformedTransaction = errors.New("malformed transaction")

const signatureLen = 64

// SignTransaction fills the first signature slot of a serialized (legacy or v0)
// transaction. The signer must be the first account key of the message.
func SignTransaction(raw []byte, kp *Keypair) ([]byte, string, error) {
	numSigs, off, err := readCompactU16(raw, 0)
	if err != nil {
		return nil, "", err
	}
	if numSigs < 1 {
		return nil, "", fmt.Errorf("%w: no signature slots", ErrMalformedTransaction)
	}
	msgStart := off + numSigs*signatureLen
	if msgStart >= len(raw) {
		return nil, "", fmt.Errorf("%w: truncated", ErrMalformedTransaction)
	}
	message := raw[msgStart:]

	payer, err := firstAccountKey(message)
	if err != nil {
		return nil, "", err
	}
	if !bytes.Equal(payer, kp.PublicKeyBytes()) {
		return nil, "", fmt.Errorf("%w: fee payer %s is not signer %s", ErrMalformedTransaction, base58.Encode(payer), kp.PublicKey())
	}

	signed := make([]byte, len(raw))
	copy(signed, raw)
	sig := kp.Sign(message)
	copy(signed[off:off+signatureLen], sig)

	return signed, base58.Encode(sig), nil
}

// firstAccountKey skips the optional version prefix and the 3-byte header.
func firstAccountKey(message []byte) ([]byte, error) {
	pos := 0
	if len(message) > 0 && message[0]&0x80 != 0 {
		pos = 1
	}
	pos += 3
	n, pos, err := readCompactU16(message, pos)
	if err != nil {
		return nil, err
	}
	if n < 1 || pos+32 > len(message) {
		return nil, fmt.Errorf("%w: missing account keys", ErrMalformedTransaction)
	}
	return message[pos : pos+32], nil
}

// readCompactU16 decodes Solana's shortvec length encoding.
func readCompactU16(b []byte, pos int) (int, int, error) {
	val := 0
	for i := 0; i < 3; i++ {
		if pos >= len(b) {
			return 0, 0, fmt.Errorf("%w: truncated length", ErrMalformedTransaction)
		}
		c := b[pos]
		pos++
		val |= int(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			return val, pos, nil
		}
	}
	return 0, 0, fmt.Errorf("%w: length overflow", ErrMalformedTransaction)
}

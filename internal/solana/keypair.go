package solana

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ErrInvalidKeypair is returned for malformed key material.
var ErrInvalidKeypair = errors.New("invalid keypair")

// Keypair is an ed25519 signing key in Solana CLI layout (seed || pubkey).
type Keypair struct {
	private ed25519.PrivateKey
}

// LoadKeypair reads a Solana CLI keypair file: a JSON array of 64 bytes.
// A leading "~/" is expanded to the home directory.
func LoadKeypair(path string) (*Keypair, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair %s: %w", path, err)
	}

	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidKeypair, path, err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		b[i] = byte(v)
	}
	return KeypairFromBytes(b)
}

// KeypairFromBase58 decodes a base58-encoded 64-byte secret key.
func KeypairFromBase58(s string) (*Keypair, error) {
	b, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	return KeypairFromBytes(b)
}

// KeypairFromBytes validates a 64-byte secret key. The trailing public key
// must be a valid curve point and must match the seed.
func KeypairFromBytes(b []byte) (*Keypair, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeypair, ed25519.PrivateKeySize, len(b))
	}
	pub := b[32:]
	if !IsOnCurve(pub) {
		return nil, fmt.Errorf("%w: public key is not on curve", ErrInvalidKeypair)
	}
	derived := ed25519.NewKeyFromSeed(b[:32])
	if !derived.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(pub)) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKeypair)
	}
	return &Keypair{private: derived}, nil
}

// NewKeypairFromSeed derives a keypair from a 32-byte seed.
func NewKeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", ErrInvalidKeypair, ed25519.SeedSize)
	}
	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// PublicKey returns the base58 public key.
func (k *Keypair) PublicKey() string {
	return base58.Encode(k.PublicKeyBytes())
}

// PublicKeyBytes returns the raw 32-byte public key.
func (k *Keypair) PublicKeyBytes() []byte {
	return []byte(k.private.Public().(ed25519.PublicKey))
}

// Sign signs message.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// IsOnCurve reports whether b encodes a valid ed25519 point.
func IsOnCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the byte length of an ed25519 public key.
const PubkeyLen = 32

// ErrInvalidPubkey is returned for strings that do not decode to 32 bytes.
var ErrInvalidPubkey = errors.New("solana: invalid public key")

// Pubkey is a Solana account address.
type Pubkey [PubkeyLen]byte

// ParsePubkey decodes a base58-encoded address.
func ParsePubkey(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: %q: %v", ErrInvalidPubkey, s, err)
	}
	if len(raw) != PubkeyLen {
		return Pubkey{}, fmt.Errorf("%w: %q: %d bytes", ErrInvalidPubkey, s, len(raw))
	}
	var pk Pubkey
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey parses a base58 address and panics on failure. For
// compile-time-constant addresses only.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// PubkeyFromBytes copies a 32-byte slice into a Pubkey.
func PubkeyFromBytes(raw []byte) (Pubkey, error) {
	if len(raw) != PubkeyLen {
		return Pubkey{}, fmt.Errorf("%w: %d bytes", ErrInvalidPubkey, len(raw))
	}
	var pk Pubkey
	copy(pk[:], raw)
	return pk, nil
}

// String returns the base58 encoding.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// IsZero reports whether the key is all zeros (the system "none" marker).
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// OnCurve reports whether the key is a valid ed25519 curve point. Program
// derived addresses are intentionally off-curve; wallet keys are on-curve.
func (p Pubkey) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

package solana

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// SPL token program account layouts, fixed-offset little-endian.
const (
	mintAccountLen  = 82
	tokenAccountLen = 165
)

// ErrAccountTooShort is returned when account data is shorter than its
// fixed layout.
var ErrAccountTooShort = errors.New("solana: account data too short")

// Mint is a parsed SPL token mint.
type Mint struct {
	Supply   uint64
	Decimals uint8
}

// ParseMint parses an SPL mint account: supply is a u64 at offset 36,
// decimals the byte after it.
func ParseMint(data []byte) (Mint, error) {
	if len(data) < mintAccountLen {
		return Mint{}, fmt.Errorf("%w: mint needs %d bytes, got %d", ErrAccountTooShort, mintAccountLen, len(data))
	}
	return Mint{
		Supply:   binary.LittleEndian.Uint64(data[36:44]),
		Decimals: data[44],
	}, nil
}

// TokenAccount is a parsed SPL token holding account.
type TokenAccount struct {
	Mint   Pubkey
	Owner  Pubkey
	Amount uint64
}

// ParseTokenAccount parses an SPL token account: mint and owner pubkeys
// followed by a u64 amount.
func ParseTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < tokenAccountLen {
		return TokenAccount{}, fmt.Errorf("%w: token account needs %d bytes, got %d", ErrAccountTooShort, tokenAccountLen, len(data))
	}
	var acc TokenAccount
	copy(acc.Mint[:], data[0:32])
	copy(acc.Owner[:], data[32:64])
	acc.Amount = binary.LittleEndian.Uint64(data[64:72])
	return acc, nil
}

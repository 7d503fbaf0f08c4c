package solana

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestParseMint(t *testing.T) {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], 15_000_000_000_000)
	data[44] = 6

	mint, err := ParseMint(data)
	if err != nil {
		t.Fatalf("ParseMint: %v", err)
	}
	if mint.Supply != 15_000_000_000_000 {
		t.Errorf("supply = %d, want 15000000000000", mint.Supply)
	}
	if mint.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", mint.Decimals)
	}
}

func TestParseMintTooShort(t *testing.T) {
	if _, err := ParseMint(make([]byte, 44)); !errors.Is(err, ErrAccountTooShort) {
		t.Fatalf("err = %v, want ErrAccountTooShort", err)
	}
}

func TestParseTokenAccount(t *testing.T) {
	data := make([]byte, 165)
	mint := MustPubkey("So11111111111111111111111111111111111111112")
	owner := MustPubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], 1_000_000_000)

	acc, err := ParseTokenAccount(data)
	if err != nil {
		t.Fatalf("ParseTokenAccount: %v", err)
	}
	if acc.Mint != mint {
		t.Errorf("mint = %s, want %s", acc.Mint, mint)
	}
	if acc.Owner != owner {
		t.Errorf("owner = %s, want %s", acc.Owner, owner)
	}
	if acc.Amount != 1_000_000_000 {
		t.Errorf("amount = %d, want 1000000000", acc.Amount)
	}
}

func TestParseTokenAccountTooShort(t *testing.T) {
	if _, err := ParseTokenAccount(make([]byte, 72)); !errors.Is(err, ErrAccountTooShort) {
		t.Fatalf("err = %v, want ErrAccountTooShort", err)
	}
}

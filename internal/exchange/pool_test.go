package exchange

import (
	"errors"
	"testing"

	"solana-exchange-core/internal/fixed"
)

func TestStabilityPoolCapCombinesLegs(t *testing.T) {
	// 1000 stablecoin at 1.0 plus 100 levercoin at 5.01 = 1501 value units.
	cap, err := StabilityPoolCap(
		fixed.One[fixed.N9](), fixed.New[fixed.N6](1_000_000_000),
		fixed.New[fixed.N9](5_010_000_000), fixed.New[fixed.N6](100_000_000),
	)
	if err != nil {
		t.Fatalf("StabilityPoolCap: %v", err)
	}
	if got, want := cap.Bits, uint64(1_501_000_000); got != want {
		t.Errorf("cap bits = %d, want %d", got, want)
	}
}

func TestLPTokenNAVParWhenEmpty(t *testing.T) {
	nav, err := LPTokenNAV(
		fixed.One[fixed.N9](), fixed.Zero[fixed.N6](),
		fixed.New[fixed.N9](5_000_000_000), fixed.Zero[fixed.N6](),
		fixed.Zero[fixed.N6](),
	)
	if err != nil {
		t.Fatalf("LPTokenNAV: %v", err)
	}
	if nav.Cmp(fixed.One[fixed.N9]()) != 0 {
		t.Errorf("empty pool nav = %s, want 1.0", nav)
	}
}

func TestLPTokenNAV(t *testing.T) {
	// 1000 stablecoin at 1.0 + 100 levercoin at 5.0 = 1500 value over 1200
	// shares = 1.25 per share.
	nav, err := LPTokenNAV(
		fixed.One[fixed.N9](), fixed.New[fixed.N6](1_000_000_000),
		fixed.New[fixed.N9](5_000_000_000), fixed.New[fixed.N6](100_000_000),
		fixed.New[fixed.N6](1_200_000_000),
	)
	if err != nil {
		t.Fatalf("LPTokenNAV: %v", err)
	}
	if got, want := nav.Bits, uint64(1_250_000_000); got != want {
		t.Errorf("nav bits = %d, want %d", got, want)
	}
}

func TestLPTokenOut(t *testing.T) {
	out, err := LPTokenOut(fixed.New[fixed.N6](100_000_000), fixed.New[fixed.N9](1_250_000_000))
	if err != nil {
		t.Fatalf("LPTokenOut: %v", err)
	}
	if got, want := out.Bits, uint64(80_000_000); got != want {
		t.Errorf("out bits = %d, want %d", got, want)
	}
}

func TestAmountTokenToWithdraw(t *testing.T) {
	// 100 of 1000 shares against a 5000 token balance.
	out, err := AmountTokenToWithdraw(
		fixed.New[fixed.N6](100_000_000),
		fixed.New[fixed.N6](1_000_000_000),
		fixed.New[fixed.N6](5_000_000_000),
	)
	if err != nil {
		t.Fatalf("AmountTokenToWithdraw: %v", err)
	}
	if got, want := out.Bits, uint64(500_000_000); got != want {
		t.Errorf("out bits = %d, want %d", got, want)
	}

	_, err = AmountTokenToWithdraw(
		fixed.New[fixed.N6](1),
		fixed.Zero[fixed.N6](),
		fixed.New[fixed.N6](1),
	)
	if !errors.Is(err, fixed.ErrDivisionByZero) {
		t.Fatalf("err = %v, want ErrDivisionByZero", err)
	}
}

func TestStablecoinWithdrawalFee(t *testing.T) {
	// Withdrawing 1000 stablecoin + 100 levercoin at NAVs 1.0 and 5.0 is
	// 1500 of value; a 1% fee is 15, charged against the stablecoin leg.
	extract, err := StablecoinWithdrawalFee(
		fixed.New[fixed.N6](1_000_000_000), fixed.One[fixed.N9](),
		fixed.New[fixed.N6](100_000_000), fixed.New[fixed.N9](5_000_000_000),
		fixed.New[fixed.N9](10_000_000),
	)
	if err != nil {
		t.Fatalf("StablecoinWithdrawalFee: %v", err)
	}
	if got, want := extract.FeesExtracted.Bits, uint64(15_000_000); got != want {
		t.Errorf("fee bits = %d, want %d", got, want)
	}
	if got, want := extract.AmountRemaining.Bits, uint64(985_000_000); got != want {
		t.Errorf("remaining bits = %d, want %d", got, want)
	}
	if sum := extract.FeesExtracted.Bits + extract.AmountRemaining.Bits; sum != 1_000_000_000 {
		t.Errorf("fee + remaining = %d, want the stablecoin leg exactly", sum)
	}
}

func TestStablecoinWithdrawalFeeExceedsLeg(t *testing.T) {
	// A tiny stablecoin leg cannot cover the fee on a large levercoin leg.
	_, err := StablecoinWithdrawalFee(
		fixed.New[fixed.N6](1_000), fixed.One[fixed.N9](),
		fixed.New[fixed.N6](100_000_000_000), fixed.New[fixed.N9](5_000_000_000),
		fixed.New[fixed.N9](10_000_000),
	)
	if !errors.Is(err, fixed.ErrUnderflow) {
		t.Fatalf("err = %v, want ErrUnderflow", err)
	}
}

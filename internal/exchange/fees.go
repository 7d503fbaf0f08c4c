package exchange

import (
	"fmt"

	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/stability"
)

// FeeExtract splits an input amount into fees and remainder. The two parts
// sum to the input exactly, at the input's scale.
type FeeExtract[S fixed.Scale] struct {
	FeesExtracted   fixed.UFix[S]
	AmountRemaining fixed.UFix[S]
}

// NewFeeExtract applies a fractional fee rate to an amount. The fee floors
// and the remainder is computed by subtraction, so the exact-sum invariant
// holds for every input.
func NewFeeExtract[S fixed.Scale](rate fixed.UFix[fixed.N9], amount fixed.UFix[S]) (FeeExtract[S], error) {
	fees, err := fixed.MulDivFloor[S](amount, rate, fixed.One[fixed.N9]())
	if err != nil {
		return FeeExtract[S]{}, fmt.Errorf("exchange: fee extraction: %w", err)
	}
	remaining, err := amount.Sub(fees)
	if err != nil {
		return FeeExtract[S]{}, fmt.Errorf("exchange: fee exceeds amount: %w", err)
	}
	return FeeExtract[S]{FeesExtracted: fees, AmountRemaining: remaining}, nil
}

// Schedule maps stability modes to fee rates for one operation kind. Modes
// without a rate reject the operation: a stablecoin mint in depeg mode has
// no rate because the operation itself is disabled there.
type Schedule struct {
	rates [3]fixed.UFix[fixed.N9]
	set   [3]bool
}

// NewSchedule builds a schedule from per-mode rates.
func NewSchedule(rates map[stability.Mode]fixed.UFix[fixed.N9]) Schedule {
	var s Schedule
	for mode, rate := range rates {
		s.rates[mode] = rate
		s.set[mode] = true
	}
	return s
}

// Rate returns the fee rate for a mode or ErrFeeNotConfigured.
func (s Schedule) Rate(mode stability.Mode) (fixed.UFix[fixed.N9], error) {
	if mode < stability.Stable || mode > stability.Depeg || !s.set[mode] {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("%w: %s", ErrFeeNotConfigured, mode)
	}
	return s.rates[mode], nil
}

// StablecoinFees is the stablecoin's per-operation fee table.
type StablecoinFees struct {
	Mint   Schedule
	Redeem Schedule
}

// LevercoinFees is the levercoin's per-operation fee table, including both
// swap directions against the stablecoin.
type LevercoinFees struct {
	Mint               Schedule
	Redeem             Schedule
	SwapToStablecoin   Schedule
	SwapFromStablecoin Schedule
}

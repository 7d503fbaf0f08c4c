package exchange

import (
	"fmt"

	"solana-exchange-core/internal/fixed"
)

// Stability pool share accounting. The pool holds both tokens; one share is
// a pro-rata claim on the pool's combined value.

// StabilityPoolCap computes the combined value of the pool's stablecoin and
// levercoin legs at their NAVs, in 6-decimal value units.
func StabilityPoolCap(stablecoinNAV fixed.UFix[fixed.N9], stablecoinInPool fixed.UFix[fixed.N6], levercoinNAV fixed.UFix[fixed.N9], levercoinInPool fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	stableLeg, err := fixed.MulDivFloor[fixed.N6](stablecoinInPool, stablecoinNAV, fixed.One[fixed.N9]())
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	leverLeg, err := fixed.MulDivFloor[fixed.N6](levercoinInPool, levercoinNAV, fixed.One[fixed.N9]())
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	return stableLeg.Add(leverLeg)
}

// LPTokenNAV computes the pool share NAV: pool value over share supply, at 9
// fractional digits. An empty pool prices shares at par.
func LPTokenNAV(stablecoinNAV fixed.UFix[fixed.N9], stablecoinInPool fixed.UFix[fixed.N6], levercoinMintNAV fixed.UFix[fixed.N9], levercoinInPool fixed.UFix[fixed.N6], lpSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	if lpSupply.IsZero() {
		return fixed.One[fixed.N9](), nil
	}
	stableLeg, err := fixed.MulDivFloor[fixed.N9](stablecoinInPool, stablecoinNAV, fixed.One[fixed.N6]())
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	leverLeg, err := fixed.MulDivFloor[fixed.N9](levercoinInPool, levercoinMintNAV, fixed.One[fixed.N6]())
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	poolValue, err := stableLeg.Add(leverLeg)
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	return fixed.MulDivFloor[fixed.N9](poolValue, fixed.One[fixed.N6](), lpSupply)
}

// LPTokenOut computes shares minted for a stablecoin deposit at the given
// share NAV.
func LPTokenOut(stablecoinIn fixed.UFix[fixed.N6], lpNAV fixed.UFix[fixed.N9]) (fixed.UFix[fixed.N6], error) {
	return fixed.MulDivFloor[fixed.N6](stablecoinIn, fixed.One[fixed.N9](), lpNAV)
}

// AmountTokenToWithdraw computes the pro-rata pool balance a share burn
// withdraws: sharesIn × poolBalance / shareSupply.
func AmountTokenToWithdraw(sharesIn, shareSupply, poolBalance fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	if shareSupply.IsZero() {
		return fixed.UFix[fixed.N6]{}, fmt.Errorf("exchange: pool withdrawal: %w", fixed.ErrDivisionByZero)
	}
	return fixed.MulDivFloor[fixed.N6](sharesIn, poolBalance, shareSupply)
}

// StablecoinWithdrawalFee charges the withdrawal fee for both legs of a pool
// withdrawal against the stablecoin leg. The fee rate applies to the
// combined value withdrawn, converted into stablecoin units at the
// stablecoin NAV; fee and remainder sum exactly to the stablecoin leg.
func StablecoinWithdrawalFee(stablecoinToWithdraw fixed.UFix[fixed.N6], stablecoinNAV fixed.UFix[fixed.N9], levercoinToWithdraw fixed.UFix[fixed.N6], levercoinMintNAV fixed.UFix[fixed.N9], feeRate fixed.UFix[fixed.N9]) (FeeExtract[fixed.N6], error) {
	valueWithdrawn, err := StabilityPoolCap(stablecoinNAV, stablecoinToWithdraw, levercoinMintNAV, levercoinToWithdraw)
	if err != nil {
		return FeeExtract[fixed.N6]{}, err
	}
	feeOnValue, err := NewFeeExtract(feeRate, valueWithdrawn)
	if err != nil {
		return FeeExtract[fixed.N6]{}, err
	}
	feeStable, err := fixed.MulDivFloor[fixed.N6](feeOnValue.FeesExtracted, fixed.One[fixed.N9](), stablecoinNAV)
	if err != nil {
		return FeeExtract[fixed.N6]{}, err
	}
	remaining, err := stablecoinToWithdraw.Sub(feeStable)
	if err != nil {
		return FeeExtract[fixed.N6]{}, fmt.Errorf("exchange: withdrawal fee exceeds stablecoin leg: %w", err)
	}
	return FeeExtract[fixed.N6]{FeesExtracted: feeStable, AmountRemaining: remaining}, nil
}

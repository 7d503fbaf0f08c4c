package exchange

import (
	"fmt"

	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
)

// Pure exchange math. All inputs are explicit parameters; nothing here reads
// protocol state. Scales: collateral and NAVs at 9 decimals, token supplies
// at 6, oracle prices at 8. Every composite multiplies and divides inside a
// single 256-bit intermediate so rounding floors exactly once.

// CollateralRatio computes total collateral value over stablecoin supply,
// pricing collateral at the oracle lower bound.
func CollateralRatio(totalCollateral fixed.UFix[fixed.N9], priceLower fixed.UFix[fixed.N8], stablecoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	if stablecoinSupply.IsZero() {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("exchange: collateral ratio: %w", fixed.ErrDivisionByZero)
	}
	return fixed.MulDivFloor[fixed.N9](totalCollateral, priceLower, stablecoinSupply)
}

// TotalValueLocked computes collateral value in USD, conservatively priced
// at the oracle lower bound, keeping 9 fractional digits.
func TotalValueLocked(totalCollateral fixed.UFix[fixed.N9], priceLower fixed.UFix[fixed.N8]) (fixed.UFix[fixed.N9], error) {
	return fixed.MulDivFloor[fixed.N9](totalCollateral, priceLower, fixed.One[fixed.N8]())
}

// DepegStablecoinNAV computes the floating stablecoin NAV once the protocol
// is undercollateralized: TVL divided by supply, socializing the shortfall
// across holders instead of letting a run drain collateral.
func DepegStablecoinNAV(totalCollateral fixed.UFix[fixed.N9], priceLower fixed.UFix[fixed.N8], stablecoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	if stablecoinSupply.IsZero() {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("exchange: depeg nav: %w", fixed.ErrDivisionByZero)
	}
	return fixed.MulDivFloor[fixed.N9](totalCollateral, priceLower, stablecoinSupply)
}

// LevercoinMintNAV prices one levercoin for minting: protocol equity at the
// oracle upper bound divided by levercoin supply. The upper bound charges
// the minter the least favorable price.
func LevercoinMintNAV(totalCollateral fixed.UFix[fixed.N9], price oracle.PriceRange[fixed.N8], stablecoinSupply fixed.UFix[fixed.N6], stablecoinNAV fixed.UFix[fixed.N9], levercoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	return levercoinNAV(totalCollateral, price.Upper, stablecoinSupply, stablecoinNAV, levercoinSupply)
}

// LevercoinRedeemNAV prices one levercoin for redemption: equity at the
// oracle lower bound divided by levercoin supply. The lower bound pays the
// redeemer the least favorable price.
func LevercoinRedeemNAV(totalCollateral fixed.UFix[fixed.N9], price oracle.PriceRange[fixed.N8], stablecoinSupply fixed.UFix[fixed.N6], stablecoinNAV fixed.UFix[fixed.N9], levercoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	return levercoinNAV(totalCollateral, price.Lower, stablecoinSupply, stablecoinNAV, levercoinSupply)
}

func levercoinNAV(totalCollateral fixed.UFix[fixed.N9], bound fixed.UFix[fixed.N8], stablecoinSupply fixed.UFix[fixed.N6], stablecoinNAV fixed.UFix[fixed.N9], levercoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	if levercoinSupply.IsZero() {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("exchange: levercoin nav: %w", fixed.ErrDivisionByZero)
	}
	tvl, err := TotalValueLocked(totalCollateral, bound)
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	liability, err := fixed.MulDivFloor[fixed.N9](stablecoinSupply, stablecoinNAV, fixed.One[fixed.N6]())
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	equity, err := tvl.Sub(liability)
	if err != nil {
		// Stablecoin liability exceeds collateral value: the levercoin is
		// worthless and its NAV undefined.
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("exchange: levercoin nav: %w", err)
	}
	return fixed.MulDivFloor[fixed.N9](equity, fixed.One[fixed.N6](), levercoinSupply)
}

// MaxMintableStablecoin returns the largest additional stablecoin supply
// such that the collateral ratio, priced at the oracle upper bound, stays at
// or above minThreshold. Zero when the ratio is already below it.
func MaxMintableStablecoin(minThreshold fixed.UFix[fixed.N9], totalCollateral fixed.UFix[fixed.N9], priceUpper fixed.UFix[fixed.N8], stablecoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	maxSupply, err := fixed.MulDivFloor[fixed.N6](totalCollateral, priceUpper, minThreshold)
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	headroom, err := maxSupply.Sub(stablecoinSupply)
	if err != nil {
		return fixed.Zero[fixed.N6](), nil
	}
	return headroom, nil
}

// MaxSwappableStablecoin returns the largest stablecoin amount mintable via
// a levercoin-to-stablecoin swap. The swap leaves TVL unchanged, so the
// ceiling is the supply at which TVL/supply hits the threshold.
func MaxSwappableStablecoin(threshold fixed.UFix[fixed.N9], totalValueLocked fixed.UFix[fixed.N9], stablecoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	maxSupply, err := fixed.MulDivFloor[fixed.N6](totalValueLocked, fixed.One[fixed.N9](), threshold)
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	headroom, err := maxSupply.Sub(stablecoinSupply)
	if err != nil {
		return fixed.Zero[fixed.N6](), nil
	}
	return headroom, nil
}

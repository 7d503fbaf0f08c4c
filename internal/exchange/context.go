package exchange

import (
	"fmt"

	"solana-exchange-core/internal/collateral"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/stability"
)

// Clock supplies the current epoch and wall time. Production uses chain
// epoch info; tests use a fixed clock.
type Clock interface {
	Epoch() uint64
	UnixTime() int64
}

// Context is an immutable snapshot of everything an exchange operation
// needs: validated collateral, a validated oracle price range, token
// supplies, the derived collateral ratio and stability mode, and the fee
// tables. It is built fresh per request and discarded afterwards; there is
// no partial context.
type Context struct {
	clock            Clock
	totalCollateral  fixed.UFix[fixed.N9]
	solUSD           oracle.PriceRange[fixed.N8]
	stablecoinSupply fixed.UFix[fixed.N6]
	levercoinSupply  *fixed.UFix[fixed.N6]
	collateralRatio  fixed.UFix[fixed.N9]
	controller       stability.Controller
	mode             stability.Mode
	stablecoinFees   StablecoinFees
	levercoinFees    LevercoinFees
}

// Load assembles a context from account data, failing on the first invalid
// input: a collateral cache from another epoch, a stale or wide oracle
// update, or a zero stablecoin supply. levercoinSupplyBits is nil while no
// levercoin mint exists.
func Load(
	clock Clock,
	cache collateral.Cache,
	controller stability.Controller,
	oracleCfg oracle.Config,
	stablecoinFees StablecoinFees,
	levercoinFees LevercoinFees,
	priceUpdate oracle.PriceUpdate,
	stablecoinSupplyBits uint64,
	levercoinSupplyBits *uint64,
) (*Context, error) {
	totalCollateral, err := cache.GetValidated(clock.Epoch())
	if err != nil {
		return nil, err
	}
	solUSD, err := oracle.Validate(clock.UnixTime(), priceUpdate, oracleCfg)
	if err != nil {
		return nil, err
	}
	stablecoinSupply := fixed.New[fixed.N6](stablecoinSupplyBits)
	var levercoinSupply *fixed.UFix[fixed.N6]
	if levercoinSupplyBits != nil {
		supply := fixed.New[fixed.N6](*levercoinSupplyBits)
		levercoinSupply = &supply
	}
	ratio, err := CollateralRatio(totalCollateral, solUSD.Lower, stablecoinSupply)
	if err != nil {
		return nil, err
	}
	return &Context{
		clock:            clock,
		totalCollateral:  totalCollateral,
		solUSD:           solUSD,
		stablecoinSupply: stablecoinSupply,
		levercoinSupply:  levercoinSupply,
		collateralRatio:  ratio,
		controller:       controller,
		mode:             controller.ModeFor(ratio),
		stablecoinFees:   stablecoinFees,
		levercoinFees:    levercoinFees,
	}, nil
}

// TotalCollateral returns the validated aggregate collateral.
func (c *Context) TotalCollateral() fixed.UFix[fixed.N9] { return c.totalCollateral }

// SOLUSDPrice returns the validated oracle price range.
func (c *Context) SOLUSDPrice() oracle.PriceRange[fixed.N8] { return c.solUSD }

// StablecoinSupply returns the stablecoin supply at load time.
func (c *Context) StablecoinSupply() fixed.UFix[fixed.N6] { return c.stablecoinSupply }

// CollateralRatio returns the ratio derived at load time.
func (c *Context) CollateralRatio() fixed.UFix[fixed.N9] { return c.collateralRatio }

// StabilityMode returns the mode derived at load time.
func (c *Context) StabilityMode() stability.Mode { return c.mode }

// Epoch returns the epoch the context was loaded in.
func (c *Context) Epoch() uint64 { return c.clock.Epoch() }

// LevercoinSupply returns the levercoin supply, or
// ErrMissingLevercoinSupply when no levercoin mint is configured.
func (c *Context) LevercoinSupply() (fixed.UFix[fixed.N6], error) {
	if c.levercoinSupply == nil {
		return fixed.UFix[fixed.N6]{}, ErrMissingLevercoinSupply
	}
	return *c.levercoinSupply, nil
}

// TotalValueLocked computes TVL in USD at the oracle lower bound.
func (c *Context) TotalValueLocked() (fixed.UFix[fixed.N9], error) {
	return TotalValueLocked(c.totalCollateral, c.solUSD.Lower)
}

// StablecoinNAV is 1.0 exactly outside depeg mode. In depeg the NAV floats
// down to TVL/supply.
func (c *Context) StablecoinNAV() (fixed.UFix[fixed.N9], error) {
	if c.mode == stability.Depeg {
		return DepegStablecoinNAV(c.totalCollateral, c.solUSD.Lower, c.stablecoinSupply)
	}
	return fixed.One[fixed.N9](), nil
}

// LevercoinMintNAV prices levercoin for minting at the oracle upper bound.
func (c *Context) LevercoinMintNAV() (fixed.UFix[fixed.N9], error) {
	supply, err := c.LevercoinSupply()
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	stablecoinNAV, err := c.StablecoinNAV()
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	return LevercoinMintNAV(c.totalCollateral, c.solUSD, c.stablecoinSupply, stablecoinNAV, supply)
}

// LevercoinRedeemNAV prices levercoin for redemption at the oracle lower
// bound.
func (c *Context) LevercoinRedeemNAV() (fixed.UFix[fixed.N9], error) {
	supply, err := c.LevercoinSupply()
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	stablecoinNAV, err := c.StablecoinNAV()
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	return LevercoinRedeemNAV(c.totalCollateral, c.solUSD, c.stablecoinSupply, stablecoinNAV, supply)
}

// ProjectedStabilityMode re-runs the ratio-to-mode derivation on
// post-operation totals, using the same oracle lower bound as the current
// ratio so the two modes are comparable.
func (c *Context) ProjectedStabilityMode(newTotalCollateral fixed.UFix[fixed.N9], newStablecoinSupply fixed.UFix[fixed.N6]) (stability.Mode, error) {
	ratio, err := CollateralRatio(newTotalCollateral, c.solUSD.Lower, newStablecoinSupply)
	if err != nil {
		return 0, err
	}
	return c.controller.ModeFor(ratio), nil
}

// SelectStabilityModeForFees picks the mode whose fee rate applies: the
// worse of the current and projected modes. A transaction that improves
// health pays the pre-improvement rate, so nobody can time a
// health-improving action purely to capture a fee discount; one that
// worsens health pays the new, worse rate.
func (c *Context) SelectStabilityModeForFees(projected stability.Mode) stability.Mode {
	if c.mode.Worse(projected) {
		return c.mode
	}
	return projected
}

// StablecoinMintFee extracts the mint fee from input LST, rated by the
// stability-mode impact of minting.
func (c *Context) StablecoinMintFee(lstPrice LSTPrice, amountLST fixed.UFix[fixed.N9]) (FeeExtract[fixed.N9], error) {
	addedSOL, err := lstPrice.ConvertSOL(amountLST, c.clock.Epoch())
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	newTotalCollateral, err := c.totalCollateral.Add(addedSOL)
	if err != nil {
		return FeeExtract[fixed.N9]{}, fmt.Errorf("exchange: projected collateral: %w", err)
	}

	stablecoinNAV, err := c.StablecoinNAV()
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	conversion, err := c.TokenConversion(lstPrice)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	minted, err := conversion.LSTToToken(amountLST, stablecoinNAV)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	newStablecoinSupply, err := minted.Add(c.stablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N9]{}, fmt.Errorf("exchange: projected stablecoin supply: %w", err)
	}

	rate, err := c.feeRateFor(c.stablecoinFees.Mint, newTotalCollateral, newStablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	return NewFeeExtract(rate, amountLST)
}

// StablecoinRedeemFee extracts the redeem fee from output LST, rated by the
// stability-mode impact of redeeming.
func (c *Context) StablecoinRedeemFee(lstPrice LSTPrice, amountLST fixed.UFix[fixed.N9]) (FeeExtract[fixed.N9], error) {
	removedSOL, err := lstPrice.ConvertSOL(amountLST, c.clock.Epoch())
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	newTotalCollateral, err := c.totalCollateral.Sub(removedSOL)
	if err != nil {
		return FeeExtract[fixed.N9]{}, fmt.Errorf("exchange: projected collateral: %w", err)
	}

	stablecoinNAV, err := c.StablecoinNAV()
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	conversion, err := c.TokenConversion(lstPrice)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	redeemed, err := conversion.LSTToToken(amountLST, stablecoinNAV)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	newStablecoinSupply, err := c.stablecoinSupply.Sub(redeemed)
	if err != nil {
		return FeeExtract[fixed.N9]{}, fmt.Errorf("exchange: projected stablecoin supply: %w", err)
	}

	rate, err := c.feeRateFor(c.stablecoinFees.Redeem, newTotalCollateral, newStablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	return NewFeeExtract(rate, amountLST)
}

// LevercoinMintFee extracts the mint fee from input LST. Minting levercoin
// adds collateral without changing stablecoin supply.
func (c *Context) LevercoinMintFee(lstPrice LSTPrice, amountLST fixed.UFix[fixed.N9]) (FeeExtract[fixed.N9], error) {
	addedSOL, err := lstPrice.ConvertSOL(amountLST, c.clock.Epoch())
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	newTotalCollateral, err := c.totalCollateral.Add(addedSOL)
	if err != nil {
		return FeeExtract[fixed.N9]{}, fmt.Errorf("exchange: projected collateral: %w", err)
	}

	rate, err := c.feeRateFor(c.levercoinFees.Mint, newTotalCollateral, c.stablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	return NewFeeExtract(rate, amountLST)
}

// LevercoinRedeemFee extracts the redeem fee from output LST. Redeeming
// levercoin removes collateral without changing stablecoin supply.
func (c *Context) LevercoinRedeemFee(lstPrice LSTPrice, amountLST fixed.UFix[fixed.N9]) (FeeExtract[fixed.N9], error) {
	removedSOL, err := lstPrice.ConvertSOL(amountLST, c.clock.Epoch())
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	newTotalCollateral, err := c.totalCollateral.Sub(removedSOL)
	if err != nil {
		return FeeExtract[fixed.N9]{}, fmt.Errorf("exchange: projected collateral: %w", err)
	}

	rate, err := c.feeRateFor(c.levercoinFees.Redeem, newTotalCollateral, c.stablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N9]{}, err
	}
	return NewFeeExtract(rate, amountLST)
}

// LevercoinToStablecoinFee extracts the swap fee from the stablecoin being
// minted by a levercoin-to-stablecoin swap. TVL is unchanged; only the
// stablecoin supply grows.
func (c *Context) LevercoinToStablecoinFee(amountStablecoin fixed.UFix[fixed.N6]) (FeeExtract[fixed.N6], error) {
	newStablecoinSupply, err := c.stablecoinSupply.Add(amountStablecoin)
	if err != nil {
		return FeeExtract[fixed.N6]{}, fmt.Errorf("exchange: projected stablecoin supply: %w", err)
	}
	rate, err := c.feeRateFor(c.levercoinFees.SwapToStablecoin, c.totalCollateral, newStablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N6]{}, err
	}
	return NewFeeExtract(rate, amountStablecoin)
}

// StablecoinToLevercoinFee extracts the swap fee from the stablecoin being
// burned by a stablecoin-to-levercoin swap.
func (c *Context) StablecoinToLevercoinFee(amountStablecoin fixed.UFix[fixed.N6]) (FeeExtract[fixed.N6], error) {
	newStablecoinSupply, err := c.stablecoinSupply.Sub(amountStablecoin)
	if err != nil {
		return FeeExtract[fixed.N6]{}, fmt.Errorf("exchange: projected stablecoin supply: %w", err)
	}
	rate, err := c.feeRateFor(c.levercoinFees.SwapFromStablecoin, c.totalCollateral, newStablecoinSupply)
	if err != nil {
		return FeeExtract[fixed.N6]{}, err
	}
	return NewFeeExtract(rate, amountStablecoin)
}

// feeRateFor runs the fee-selection protocol: project the post-operation
// mode, take the worse of current and projected, and look up that mode's
// rate.
func (c *Context) feeRateFor(schedule Schedule, newTotalCollateral fixed.UFix[fixed.N9], newStablecoinSupply fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N9], error) {
	projected, err := c.ProjectedStabilityMode(newTotalCollateral, newStablecoinSupply)
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	return schedule.Rate(c.SelectStabilityModeForFees(projected))
}

// MaxMintableStablecoin returns how much more stablecoin may be minted
// before the ratio hits the lowest threshold.
func (c *Context) MaxMintableStablecoin() (fixed.UFix[fixed.N6], error) {
	return MaxMintableStablecoin(c.controller.MinThreshold(), c.totalCollateral, c.solUSD.Upper, c.stablecoinSupply)
}

// MaxSwappableStablecoin returns how much stablecoin a levercoin swap may
// mint before the ratio hits the lowest threshold.
func (c *Context) MaxSwappableStablecoin() (fixed.UFix[fixed.N6], error) {
	tvl, err := c.TotalValueLocked()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	return MaxSwappableStablecoin(c.controller.MinThreshold(), tvl, c.stablecoinSupply)
}

// MaxSwappableStablecoinToNextThreshold bounds the swap by the next
// threshold below the current mode instead of the floor. Fails in depeg
// mode, where no lower threshold exists.
func (c *Context) MaxSwappableStablecoinToNextThreshold() (fixed.UFix[fixed.N6], error) {
	tvl, err := c.TotalValueLocked()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	next, err := c.controller.NextThreshold(c.mode)
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	return MaxSwappableStablecoin(next, tvl, c.stablecoinSupply)
}

// ValidateStablecoinAmount checks a requested stablecoin mint against the
// current ceiling.
func (c *Context) ValidateStablecoinAmount(requested fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	max, err := c.MaxMintableStablecoin()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	if requested.Cmp(max) > 0 {
		return fixed.UFix[fixed.N6]{}, fmt.Errorf("%w: requested %s, max %s", ErrExceedsMaxMintable, requested, max)
	}
	return requested, nil
}

// ValidateStablecoinSwapAmount checks the stablecoin minted by a swap
// against the swap ceiling.
func (c *Context) ValidateStablecoinSwapAmount(requested fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	max, err := c.MaxSwappableStablecoin()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	if requested.Cmp(max) > 0 {
		return fixed.UFix[fixed.N6]{}, fmt.Errorf("%w: requested %s, max %s", ErrExceedsMaxSwappable, requested, max)
	}
	return requested, nil
}

// TokenConversion builds the LST/token converter for this context's oracle
// price, validating the LST price epoch.
func (c *Context) TokenConversion(lstPrice LSTPrice) (Conversion, error) {
	lstSOL, err := lstPrice.PriceForEpoch(c.clock.Epoch())
	if err != nil {
		return Conversion{}, err
	}
	return NewConversion(c.solUSD, lstSOL), nil
}

// SwapConversion builds the direct stablecoin/levercoin converter from the
// context's NAVs.
func (c *Context) SwapConversion() (SwapConversion, error) {
	stablecoinNAV, err := c.StablecoinNAV()
	if err != nil {
		return SwapConversion{}, err
	}
	redeemNAV, err := c.LevercoinRedeemNAV()
	if err != nil {
		return SwapConversion{}, err
	}
	mintNAV, err := c.LevercoinMintNAV()
	if err != nil {
		return SwapConversion{}, err
	}
	return NewSwapConversion(stablecoinNAV, oracle.NewPriceRange(redeemNAV, mintNAV)), nil
}

// SOLToStablecoin converts raw SOL to stablecoin, reusing the LST converter
// with a 1:1 LST/SOL base.
func (c *Context) SOLToStablecoin(amountSOL fixed.UFix[fixed.N9]) (fixed.UFix[fixed.N6], error) {
	nav, err := c.StablecoinNAV()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	return NewConversion(c.solUSD, fixed.One[fixed.N9]()).LSTToToken(amountSOL, nav)
}

// SOLToLevercoin converts raw SOL to levercoin at the mint NAV.
func (c *Context) SOLToLevercoin(amountSOL fixed.UFix[fixed.N9]) (fixed.UFix[fixed.N6], error) {
	nav, err := c.LevercoinMintNAV()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	return NewConversion(c.solUSD, fixed.One[fixed.N9]()).LSTToToken(amountSOL, nav)
}

// StabilityPoolCap computes the pool's combined capitalization at the
// context's NAVs.
func (c *Context) StabilityPoolCap(stablecoinInPool, levercoinInPool fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	stablecoinNAV, err := c.StablecoinNAV()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	levercoinNAV, err := c.LevercoinMintNAV()
	if err != nil {
		return fixed.UFix[fixed.N6]{}, err
	}
	return StabilityPoolCap(stablecoinNAV, stablecoinInPool, levercoinNAV, levercoinInPool)
}

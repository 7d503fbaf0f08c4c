// Package quote composes exchange-context operations into swap quotes for
// the nine supported trading pairs. The order of operations per pair is
// load-bearing: mints charge the fee on the input before converting, redeems
// convert before charging the fee on the output, and amounts are validated
// against protocol ceilings before fees are taken from them.
package quote

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/solana"
)

// ErrLevercoinInPool blocks direct pool-share-to-stablecoin redemption while
// the stability pool holds levercoin; only the LST liquidation path can
// unwind a mixed pool.
var ErrLevercoinInPool = errors.New("quote: levercoin in stability pool, redeem to LST instead")

// Quote is the priced result of one hypothetical swap. Amounts are raw token
// bits in the input and output tokens' native scales.
type Quote struct {
	InAmount  uint64
	OutAmount uint64
	FeeAmount uint64
	FeeMint   solana.Pubkey
	FeePct    decimal.Decimal
}

// LSTInfo identifies an LST and carries its epoch-tagged SOL price.
type LSTInfo struct {
	Mint  solana.Pubkey
	Price exchange.LSTPrice
}

// PoolState is the stability pool view a pool-share quote needs.
type PoolState struct {
	ShareSupply      fixed.UFix[fixed.N6]
	StablecoinInPool fixed.UFix[fixed.N6]
	LevercoinInPool  fixed.UFix[fixed.N6]
	WithdrawalFee    fixed.UFix[fixed.N9]
}

// FeePctDecimal computes fees/total as a decimal fraction at the amounts'
// scale.
func FeePctDecimal[S fixed.Scale](fees, total fixed.UFix[S]) (decimal.Decimal, error) {
	ratio, err := fixed.MulDivFloor[S](fees, fixed.One[S](), total)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("quote: fee pct: %w", err)
	}
	var s S
	return decimal.New(int64(ratio.Bits), -int32(s.Decimals())), nil
}

// StablecoinMint quotes LST -> stablecoin: fee on the input LST, then
// conversion of the remainder, validated against the mint ceiling.
func StablecoinMint(ctx *exchange.Context, lst LSTInfo, inAmount fixed.UFix[fixed.N9]) (Quote, error) {
	extract, err := ctx.StablecoinMintFee(lst.Price, inAmount)
	if err != nil {
		return Quote{}, err
	}
	stablecoinNAV, err := ctx.StablecoinNAV()
	if err != nil {
		return Quote{}, err
	}
	conversion, err := ctx.TokenConversion(lst.Price)
	if err != nil {
		return Quote{}, err
	}
	converted, err := conversion.LSTToToken(extract.AmountRemaining, stablecoinNAV)
	if err != nil {
		return Quote{}, err
	}
	out, err := ctx.ValidateStablecoinAmount(converted)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, inAmount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: out.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   lst.Mint,
		FeePct:    feePct,
	}, nil
}

// StablecoinRedeem quotes stablecoin -> LST: conversion first, then the
// redeem fee on the output LST.
func StablecoinRedeem(ctx *exchange.Context, lst LSTInfo, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	stablecoinNAV, err := ctx.StablecoinNAV()
	if err != nil {
		return Quote{}, err
	}
	conversion, err := ctx.TokenConversion(lst.Price)
	if err != nil {
		return Quote{}, err
	}
	lstOut, err := conversion.TokenToLST(inAmount, stablecoinNAV)
	if err != nil {
		return Quote{}, err
	}
	extract, err := ctx.StablecoinRedeemFee(lst.Price, lstOut)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, lstOut)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: extract.AmountRemaining.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   lst.Mint,
		FeePct:    feePct,
	}, nil
}

// LevercoinMint quotes LST -> levercoin: fee on the input LST, then
// conversion of the remainder at the mint NAV.
func LevercoinMint(ctx *exchange.Context, lst LSTInfo, inAmount fixed.UFix[fixed.N9]) (Quote, error) {
	extract, err := ctx.LevercoinMintFee(lst.Price, inAmount)
	if err != nil {
		return Quote{}, err
	}
	mintNAV, err := ctx.LevercoinMintNAV()
	if err != nil {
		return Quote{}, err
	}
	conversion, err := ctx.TokenConversion(lst.Price)
	if err != nil {
		return Quote{}, err
	}
	out, err := conversion.LSTToToken(extract.AmountRemaining, mintNAV)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, inAmount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: out.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   lst.Mint,
		FeePct:    feePct,
	}, nil
}

// LevercoinRedeem quotes levercoin -> LST: conversion at the redeem NAV,
// then the redeem fee on the output LST.
func LevercoinRedeem(ctx *exchange.Context, lst LSTInfo, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	redeemNAV, err := ctx.LevercoinRedeemNAV()
	if err != nil {
		return Quote{}, err
	}
	conversion, err := ctx.TokenConversion(lst.Price)
	if err != nil {
		return Quote{}, err
	}
	lstOut, err := conversion.TokenToLST(inAmount, redeemNAV)
	if err != nil {
		return Quote{}, err
	}
	extract, err := ctx.LevercoinRedeemFee(lst.Price, lstOut)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, lstOut)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: extract.AmountRemaining.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   lst.Mint,
		FeePct:    feePct,
	}, nil
}

// StableToLeverSwap quotes stablecoin -> levercoin: fee on the stablecoin
// input, then conversion at the levercoin mint NAV.
func StableToLeverSwap(ctx *exchange.Context, stablecoinMint solana.Pubkey, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	extract, err := ctx.StablecoinToLevercoinFee(inAmount)
	if err != nil {
		return Quote{}, err
	}
	swap, err := ctx.SwapConversion()
	if err != nil {
		return Quote{}, err
	}
	out, err := swap.StableToLever(extract.AmountRemaining)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, inAmount)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: out.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   stablecoinMint,
		FeePct:    feePct,
	}, nil
}

// LeverToStableSwap quotes levercoin -> stablecoin: conversion at the redeem
// NAV, validation against the swap ceiling, then the fee on the stablecoin
// total.
func LeverToStableSwap(ctx *exchange.Context, stablecoinMint solana.Pubkey, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	swap, err := ctx.SwapConversion()
	if err != nil {
		return Quote{}, err
	}
	converted, err := swap.LeverToStable(inAmount)
	if err != nil {
		return Quote{}, err
	}
	total, err := ctx.ValidateStablecoinSwapAmount(converted)
	if err != nil {
		return Quote{}, err
	}
	extract, err := ctx.LevercoinToStablecoinFee(total)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, total)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: extract.AmountRemaining.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   stablecoinMint,
		FeePct:    feePct,
	}, nil
}

// PoolShareMint quotes stablecoin -> pool shares at the share NAV. Deposits
// are fee-free.
func PoolShareMint(ctx *exchange.Context, stablecoinMint solana.Pubkey, pool PoolState, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	stablecoinNAV, err := ctx.StablecoinNAV()
	if err != nil {
		return Quote{}, err
	}
	levercoinMintNAV, err := ctx.LevercoinMintNAV()
	if err != nil {
		return Quote{}, err
	}
	shareNAV, err := exchange.LPTokenNAV(stablecoinNAV, pool.StablecoinInPool,
		levercoinMintNAV, pool.LevercoinInPool, pool.ShareSupply)
	if err != nil {
		return Quote{}, err
	}
	out, err := exchange.LPTokenOut(inAmount, shareNAV)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: out.Bits,
		FeeAmount: 0,
		FeeMint:   stablecoinMint,
		FeePct:    decimal.Zero,
	}, nil
}

// PoolShareRedeem quotes pool shares -> stablecoin: pro-rata withdrawal plus
// the pool withdrawal fee. Only possible while the pool holds no levercoin.
func PoolShareRedeem(stablecoinMint solana.Pubkey, pool PoolState, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	if !pool.LevercoinInPool.IsZero() {
		return Quote{}, ErrLevercoinInPool
	}
	stablecoinToWithdraw, err := exchange.AmountTokenToWithdraw(inAmount, pool.ShareSupply, pool.StablecoinInPool)
	if err != nil {
		return Quote{}, err
	}
	extract, err := exchange.NewFeeExtract(pool.WithdrawalFee, stablecoinToWithdraw)
	if err != nil {
		return Quote{}, err
	}
	feePct, err := FeePctDecimal(extract.FeesExtracted, stablecoinToWithdraw)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: extract.AmountRemaining.Bits,
		FeeAmount: extract.FeesExtracted.Bits,
		FeeMint:   stablecoinMint,
		FeePct:    feePct,
	}, nil
}

// PoolShareRedeemLST quotes pool shares -> LST, the liquidation path that
// works regardless of pool composition: withdraw both legs pro rata, charge
// the withdrawal fee against the stablecoin leg, then redeem each leg to LST
// through its own fee path. Fees and outputs are totalled in LST.
func PoolShareRedeemLST(ctx *exchange.Context, lst LSTInfo, pool PoolState, inAmount fixed.UFix[fixed.N6]) (Quote, error) {
	stablecoinToWithdraw, err := exchange.AmountTokenToWithdraw(inAmount, pool.ShareSupply, pool.StablecoinInPool)
	if err != nil {
		return Quote{}, err
	}
	levercoinToWithdraw, err := exchange.AmountTokenToWithdraw(inAmount, pool.ShareSupply, pool.LevercoinInPool)
	if err != nil {
		return Quote{}, err
	}

	stablecoinNAV, err := ctx.StablecoinNAV()
	if err != nil {
		return Quote{}, err
	}
	levercoinMintNAV, err := ctx.LevercoinMintNAV()
	if err != nil {
		return Quote{}, err
	}
	withdrawal, err := exchange.StablecoinWithdrawalFee(stablecoinToWithdraw, stablecoinNAV,
		levercoinToWithdraw, levercoinMintNAV, pool.WithdrawalFee)
	if err != nil {
		return Quote{}, err
	}

	conversion, err := ctx.TokenConversion(lst.Price)
	if err != nil {
		return Quote{}, err
	}
	withdrawalFeeLST, err := conversion.TokenToLST(withdrawal.FeesExtracted, stablecoinNAV)
	if err != nil {
		return Quote{}, err
	}

	// Remaining stablecoin leg redeems to LST through the stablecoin fee
	// path.
	stablecoinRedeemLST, err := conversion.TokenToLST(withdrawal.AmountRemaining, stablecoinNAV)
	if err != nil {
		return Quote{}, err
	}
	stablecoinExtract, err := ctx.StablecoinRedeemFee(lst.Price, stablecoinRedeemLST)
	if err != nil {
		return Quote{}, err
	}

	// Levercoin leg redeems at its redeem NAV through the levercoin fee
	// path.
	levercoinRedeemNAV, err := ctx.LevercoinRedeemNAV()
	if err != nil {
		return Quote{}, err
	}
	levercoinRedeemLST, err := conversion.TokenToLST(levercoinToWithdraw, levercoinRedeemNAV)
	if err != nil {
		return Quote{}, err
	}
	levercoinExtract, err := ctx.LevercoinRedeemFee(lst.Price, levercoinRedeemLST)
	if err != nil {
		return Quote{}, err
	}

	totalFees, err := withdrawalFeeLST.Add(stablecoinExtract.FeesExtracted)
	if err != nil {
		return Quote{}, fmt.Errorf("quote: total fees: %w", err)
	}
	totalFees, err = totalFees.Add(levercoinExtract.FeesExtracted)
	if err != nil {
		return Quote{}, fmt.Errorf("quote: total fees: %w", err)
	}
	totalOut, err := stablecoinExtract.AmountRemaining.Add(levercoinExtract.AmountRemaining)
	if err != nil {
		return Quote{}, fmt.Errorf("quote: total output: %w", err)
	}

	feePct, err := FeePctDecimal(totalFees, totalOut)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		InAmount:  inAmount.Bits,
		OutAmount: totalOut.Bits,
		FeeAmount: totalFees.Bits,
		FeeMint:   lst.Mint,
		FeePct:    feePct,
	}, nil
}

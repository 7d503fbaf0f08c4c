package exchange

import (
	"fmt"

	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
)

// LSTPrice is the SOL value of one LST unit, tagged with the epoch it was
// computed in. Stake-pool exchange rates move once per epoch, so a price
// from another epoch must not be trusted.
type LSTPrice struct {
	SOLPerLST fixed.UFix[fixed.N9]
	Epoch     uint64
}

// PriceForEpoch returns the price only when it was computed in currentEpoch.
func (p LSTPrice) PriceForEpoch(currentEpoch uint64) (fixed.UFix[fixed.N9], error) {
	if p.Epoch != currentEpoch {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("%w: price epoch %d, current epoch %d",
			ErrStaleLSTPrice, p.Epoch, currentEpoch)
	}
	return p.SOLPerLST, nil
}

// ConvertSOL converts an LST amount to SOL at this epoch's exchange rate.
func (p LSTPrice) ConvertSOL(amountLST fixed.UFix[fixed.N9], currentEpoch uint64) (fixed.UFix[fixed.N9], error) {
	price, err := p.PriceForEpoch(currentEpoch)
	if err != nil {
		return fixed.UFix[fixed.N9]{}, err
	}
	return fixed.MulDivFloor[fixed.N9](amountLST, price, fixed.One[fixed.N9]())
}

// Conversion converts between LST amounts and token amounts through a SOL/USD
// price and a token NAV. Both directions price SOL at the oracle lower bound
// so a round trip through the same NAV inverts exactly up to flooring; the
// protocol's oracle-noise margin lives in the NAV bound asymmetry instead.
type Conversion struct {
	solUSD oracle.PriceRange[fixed.N8]
	lstSOL fixed.UFix[fixed.N9]
}

// NewConversion pairs an oracle price range with an LST/SOL price.
func NewConversion(solUSD oracle.PriceRange[fixed.N8], lstSOL fixed.UFix[fixed.N9]) Conversion {
	return Conversion{solUSD: solUSD, lstSOL: lstSOL}
}

// LSTToToken converts an LST amount into tokens at the given NAV:
// amount × lstSOL × solUSD / nav, floored once.
func (c Conversion) LSTToToken(amountLST fixed.UFix[fixed.N9], nav fixed.UFix[fixed.N9]) (fixed.UFix[fixed.N6], error) {
	return fixed.MulMulDivFloor[fixed.N6](amountLST, c.lstSOL, c.solUSD.Lower, nav)
}

// TokenToLST converts a token amount into LST at the given NAV:
// amount × nav / (lstSOL × solUSD), floored once.
func (c Conversion) TokenToLST(amountToken fixed.UFix[fixed.N6], nav fixed.UFix[fixed.N9]) (fixed.UFix[fixed.N9], error) {
	return fixed.MulDivDivFloor[fixed.N9](amountToken, nav, c.lstSOL, c.solUSD.Lower)
}

// SwapConversion converts directly between the two tokens through their
// NAVs. The levercoin side is a range: swaps into levercoin price it at the
// mint NAV (upper), swaps out of levercoin at the redeem NAV (lower).
type SwapConversion struct {
	stablecoinNAV fixed.UFix[fixed.N9]
	levercoinNAV  oracle.PriceRange[fixed.N9]
}

// NewSwapConversion pairs the stablecoin NAV with the levercoin NAV range.
func NewSwapConversion(stablecoinNAV fixed.UFix[fixed.N9], levercoinNAV oracle.PriceRange[fixed.N9]) SwapConversion {
	return SwapConversion{stablecoinNAV: stablecoinNAV, levercoinNAV: levercoinNAV}
}

// StableToLever converts stablecoin to levercoin at the levercoin mint NAV.
func (c SwapConversion) StableToLever(amountStable fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	return fixed.MulDivFloor[fixed.N6](amountStable, c.stablecoinNAV, c.levercoinNAV.Upper)
}

// LeverToStable converts levercoin to stablecoin at the levercoin redeem NAV.
func (c SwapConversion) LeverToStable(amountLever fixed.UFix[fixed.N6]) (fixed.UFix[fixed.N6], error) {
	return fixed.MulDivFloor[fixed.N6](amountLever, c.levercoinNAV.Lower, c.stablecoinNAV)
}

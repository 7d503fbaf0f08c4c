// Package oracle validates third-party price updates and produces bounded
// price ranges for the exchange core. A single request never retries a
// failed update; staleness and confidence failures abort the request and the
// caller may retry with a fresher update on the next one.
package oracle

import (
	"errors"
	"fmt"

	"solana-exchange-core/internal/fixed"
)

var (
	// ErrStalePrice is returned when the update's publish time is older
	// than the configured staleness window.
	ErrStalePrice = errors.New("oracle: price update is stale")

	// ErrConfidenceExceeded is returned when the confidence interval is too
	// wide relative to the price midpoint.
	ErrConfidenceExceeded = errors.New("oracle: confidence interval exceeds tolerance")

	// ErrInvalidPrice is returned for non-positive prices or a confidence
	// interval wider than the price itself.
	ErrInvalidPrice = errors.New("oracle: invalid price update")
)

// PriceRange is a confidence interval at a fixed scale. Conservative code
// paths pick Lower or Upper depending on which direction is protocol-safe.
type PriceRange[S fixed.Scale] struct {
	Lower fixed.UFix[S]
	Upper fixed.UFix[S]
}

// NewPriceRange orders the bounds; Lower <= Upper always holds.
func NewPriceRange[S fixed.Scale](lower, upper fixed.UFix[S]) PriceRange[S] {
	if lower.Cmp(upper) > 0 {
		lower, upper = upper, lower
	}
	return PriceRange[S]{Lower: lower, Upper: upper}
}

// PriceUpdate is a raw oracle update as published on chain.
type PriceUpdate struct {
	Price       int64 // price mantissa
	Conf        uint64 // confidence interval mantissa
	Exponent    int32 // decimal exponent, typically negative
	PublishTime int64 // unix seconds
}

// Config bounds how much an update may be trusted.
type Config struct {
	// MaxStalenessSecs is the maximum age of an update relative to now.
	MaxStalenessSecs uint64
	// ConfTolerance is the maximum allowed conf/price fraction.
	ConfTolerance fixed.UFix[fixed.N8]
}

// Validate checks the update against the config and returns its price range
// at 8 fractional digits.
func Validate(now int64, update PriceUpdate, cfg Config) (PriceRange[fixed.N8], error) {
	if update.Price <= 0 {
		return PriceRange[fixed.N8]{}, fmt.Errorf("%w: price %d", ErrInvalidPrice, update.Price)
	}
	age := now - update.PublishTime
	if age < 0 || uint64(age) > cfg.MaxStalenessSecs {
		return PriceRange[fixed.N8]{}, fmt.Errorf("%w: published %ds ago, max %ds",
			ErrStalePrice, age, cfg.MaxStalenessSecs)
	}
	if update.Conf > uint64(update.Price) {
		return PriceRange[fixed.N8]{}, fmt.Errorf("%w: conf %d wider than price %d",
			ErrInvalidPrice, update.Conf, update.Price)
	}

	price, err := mantissaToN8(uint64(update.Price), update.Exponent)
	if err != nil {
		return PriceRange[fixed.N8]{}, err
	}
	conf, err := mantissaToN8(update.Conf, update.Exponent)
	if err != nil {
		return PriceRange[fixed.N8]{}, err
	}

	// conf/price at the same exponent cancels the exponent out.
	ratio, err := fixed.MulDivFloor[fixed.N8](conf, fixed.One[fixed.N8](), price)
	if err != nil {
		return PriceRange[fixed.N8]{}, fmt.Errorf("oracle: confidence ratio: %w", err)
	}
	if ratio.Cmp(cfg.ConfTolerance) > 0 {
		return PriceRange[fixed.N8]{}, fmt.Errorf("%w: conf/price %s, tolerance %s",
			ErrConfidenceExceeded, ratio, cfg.ConfTolerance)
	}

	lower, err := price.Sub(conf)
	if err != nil {
		return PriceRange[fixed.N8]{}, fmt.Errorf("oracle: lower bound: %w", err)
	}
	upper, err := price.Add(conf)
	if err != nil {
		return PriceRange[fixed.N8]{}, fmt.Errorf("oracle: upper bound: %w", err)
	}
	return PriceRange[fixed.N8]{Lower: lower, Upper: upper}, nil
}

// mantissaToN8 rescales a mantissa with a decimal exponent to 8 fractional
// digits. Scaling up is checked; scaling down floors.
func mantissaToN8(mantissa uint64, exponent int32) (fixed.UFix[fixed.N8], error) {
	shift := exponent + 8
	if shift >= 0 {
		if shift > 19 {
			return fixed.UFix[fixed.N8]{}, fixed.ErrOverflow
		}
		factor := uint64(1)
		for i := int32(0); i < shift; i++ {
			factor *= 10
		}
		bits := mantissa * factor
		if mantissa != 0 && bits/factor != mantissa {
			return fixed.UFix[fixed.N8]{}, fixed.ErrOverflow
		}
		return fixed.New[fixed.N8](bits), nil
	}
	if shift < -19 {
		return fixed.New[fixed.N8](0), nil
	}
	factor := uint64(1)
	for i := shift; i < 0; i++ {
		factor *= 10
	}
	return fixed.New[fixed.N8](mantissa / factor), nil
}

// Package stability derives the protocol's discrete health state from the
// collateral ratio. The state is recomputed from the current ratio on every
// request; it is never stored.
package stability

import (
	"errors"
	"fmt"

	"solana-exchange-core/internal/fixed"
)

var (
	// ErrNoNextThreshold is returned when a threshold below the worst mode
	// is requested.
	ErrNoNextThreshold = errors.New("stability: no threshold below depeg")

	// ErrInvalidThresholds is returned when the thresholds are not strictly
	// descending and positive.
	ErrInvalidThresholds = errors.New("stability: thresholds must satisfy threshold1 > threshold2 > 0")
)

// Mode is the protocol health state, ordered from healthiest to most
// stressed. Comparison is defined purely on the ordinal so the "worse of two
// modes" fee rule stays unambiguous.
type Mode int

const (
	Stable Mode = iota
	Decay
	Depeg
)

func (m Mode) String() string {
	switch m {
	case Stable:
		return "stable"
	case Decay:
		return "decay"
	case Depeg:
		return "depeg"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Worse reports whether m is more stressed than other.
func (m Mode) Worse(other Mode) bool {
	return m > other
}

// Controller holds the two descending collateral-ratio thresholds that
// partition ratios into modes.
type Controller struct {
	threshold1 fixed.UFix[fixed.N9]
	threshold2 fixed.UFix[fixed.N9]
}

// NewController validates threshold1 > threshold2 > 0.
func NewController(threshold1, threshold2 fixed.UFix[fixed.N9]) (Controller, error) {
	if threshold2.IsZero() || threshold1.Cmp(threshold2) <= 0 {
		return Controller{}, fmt.Errorf("%w: got %s, %s", ErrInvalidThresholds, threshold1, threshold2)
	}
	return Controller{threshold1: threshold1, threshold2: threshold2}, nil
}

// ModeFor classifies a collateral ratio. Ratios exactly on a threshold fall
// into the healthier adjoining mode.
func (c Controller) ModeFor(ratio fixed.UFix[fixed.N9]) Mode {
	switch {
	case ratio.Cmp(c.threshold1) >= 0:
		return Stable
	case ratio.Cmp(c.threshold2) >= 0:
		return Decay
	default:
		return Depeg
	}
}

// MinThreshold returns the lowest configured threshold, the floor used for
// mint ceilings.
func (c Controller) MinThreshold() fixed.UFix[fixed.N9] {
	return c.threshold2
}

// NextThreshold returns the threshold immediately below the given mode's
// floor: the boundary the system would cross next if health degrades.
func (c Controller) NextThreshold(mode Mode) (fixed.UFix[fixed.N9], error) {
	switch mode {
	case Stable:
		return c.threshold1, nil
	case Decay:
		return c.threshold2, nil
	default:
		return fixed.UFix[fixed.N9]{}, ErrNoNextThreshold
	}
}

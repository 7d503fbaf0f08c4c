// Package collateral exposes the externally-maintained aggregate collateral
// figure to the exchange core. The core never recomputes the total; it only
// refuses to trust a value computed in a different epoch. This is a
// correctness gate, not a performance cache: on any mismatch the core fails
// closed.
package collateral

import (
	"errors"
	"fmt"

	"solana-exchange-core/internal/fixed"
)

// ErrStaleCache is returned when the cached total was computed in a
// different epoch than the current one.
var ErrStaleCache = errors.New("collateral: cached total is from a different epoch")

// Cache is an aggregate collateral total tagged with the epoch it was
// computed in. It is written by an external update path once per epoch (or
// more) and read-validated by every exchange context construction.
type Cache struct {
	Total fixed.UFix[fixed.N9]
	Epoch uint64
}

// NewCache wraps raw 9-decimal collateral bits and the computing epoch.
func NewCache(totalBits, epoch uint64) Cache {
	return Cache{Total: fixed.New[fixed.N9](totalBits), Epoch: epoch}
}

// GetValidated returns the cached total only when it was computed in
// currentEpoch.
func (c Cache) GetValidated(currentEpoch uint64) (fixed.UFix[fixed.N9], error) {
	if c.Epoch != currentEpoch {
		return fixed.UFix[fixed.N9]{}, fmt.Errorf("%w: cached epoch %d, current epoch %d",
			ErrStaleCache, c.Epoch, currentEpoch)
	}
	return c.Total, nil
}

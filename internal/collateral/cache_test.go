package collateral

import (
	"errors"
	"testing"
)

func TestGetValidated_MatchingEpoch(t *testing.T) {
	cache := NewCache(1_000_000_000_000_000, 512)

	total, err := cache.GetValidated(512)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.Bits != 1_000_000_000_000_000 {
		t.Errorf("total = %d", total.Bits)
	}
}

func TestGetValidated_StaleEpoch(t *testing.T) {
	cache := NewCache(1_000_000_000_000_000, 512)

	// Both an advanced and a regressed current epoch must be rejected.
	for _, epoch := range []uint64{513, 511, 0} {
		if _, err := cache.GetValidated(epoch); !errors.Is(err, ErrStaleCache) {
			t.Errorf("epoch %d: expected ErrStaleCache, got %v", epoch, err)
		}
	}
}

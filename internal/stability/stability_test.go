package stability

import (
	"errors"
	"testing"

	"solana-exchange-core/internal/fixed"
)

func testController(t *testing.T) Controller {
	t.Helper()
	t1, _ := fixed.Parse[fixed.N9]("1.5")
	t2, _ := fixed.Parse[fixed.N9]("1.2")
	c, err := NewController(t1, t2)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestNewController_Invalid(t *testing.T) {
	one := fixed.One[fixed.N9]()
	two, _ := one.Add(one)

	cases := [][2]fixed.UFix[fixed.N9]{
		{one, one},             // equal
		{one, two},             // ascending
		{one, fixed.Zero[fixed.N9]()}, // zero floor
	}
	for _, c := range cases {
		if _, err := NewController(c[0], c[1]); !errors.Is(err, ErrInvalidThresholds) {
			t.Errorf("thresholds (%s, %s): expected ErrInvalidThresholds, got %v", c[0], c[1], err)
		}
	}
}

func TestModeFor_Boundaries(t *testing.T) {
	c := testController(t)

	cases := []struct {
		ratio string
		mode  Mode
	}{
		{"2.0", Stable},
		{"1.5", Stable}, // threshold1 inclusive on the healthy side
		{"1.499999999", Decay},
		{"1.2", Decay}, // threshold2 inclusive on the healthy side
		{"1.199999999", Depeg},
		{"0", Depeg},
	}
	for _, tc := range cases {
		ratio, _ := fixed.Parse[fixed.N9](tc.ratio)
		if got := c.ModeFor(ratio); got != tc.mode {
			t.Errorf("ModeFor(%s) = %v, expected %v", tc.ratio, got, tc.mode)
		}
	}
}

func TestModeFor_MonotonicInStress(t *testing.T) {
	c := testController(t)

	// Mode ordinal must be non-decreasing as the ratio decreases.
	prev := Stable
	for bits := uint64(2_000_000_000); ; bits -= 100_000_000 {
		mode := c.ModeFor(fixed.New[fixed.N9](bits))
		if mode < prev {
			t.Fatalf("mode improved from %v to %v as ratio dropped to %d", prev, mode, bits)
		}
		prev = mode
		if bits == 0 {
			break
		}
	}
}

func TestMinThreshold(t *testing.T) {
	c := testController(t)
	want, _ := fixed.Parse[fixed.N9]("1.2")
	if c.MinThreshold() != want {
		t.Errorf("MinThreshold = %s", c.MinThreshold())
	}
}

func TestNextThreshold(t *testing.T) {
	c := testController(t)

	t1, _ := c.NextThreshold(Stable)
	want1, _ := fixed.Parse[fixed.N9]("1.5")
	if t1 != want1 {
		t.Errorf("NextThreshold(Stable) = %s", t1)
	}

	t2, _ := c.NextThreshold(Decay)
	want2, _ := fixed.Parse[fixed.N9]("1.2")
	if t2 != want2 {
		t.Errorf("NextThreshold(Decay) = %s", t2)
	}

	if _, err := c.NextThreshold(Depeg); !errors.Is(err, ErrNoNextThreshold) {
		t.Errorf("NextThreshold(Depeg): expected ErrNoNextThreshold, got %v", err)
	}
}

func TestModeOrdering(t *testing.T) {
	if !Depeg.Worse(Decay) || !Decay.Worse(Stable) {
		t.Error("mode ordering broken")
	}
	if Stable.Worse(Stable) {
		t.Error("a mode is not worse than itself")
	}
}

package exchange

import (
	"errors"
	"testing"

	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
)

func TestLSTPriceEpochGate(t *testing.T) {
	price := LSTPrice{SOLPerLST: fixed.New[fixed.N9](1_050_000_000), Epoch: 512}

	got, err := price.PriceForEpoch(512)
	if err != nil {
		t.Fatalf("PriceForEpoch(512): %v", err)
	}
	if got.Bits != 1_050_000_000 {
		t.Errorf("price bits = %d, want 1050000000", got.Bits)
	}

	for _, epoch := range []uint64{511, 513, 0} {
		if _, err := price.PriceForEpoch(epoch); !errors.Is(err, ErrStaleLSTPrice) {
			t.Errorf("PriceForEpoch(%d): err = %v, want ErrStaleLSTPrice", epoch, err)
		}
	}
}

func TestLSTPriceConvertSOL(t *testing.T) {
	price := LSTPrice{SOLPerLST: fixed.New[fixed.N9](1_050_000_000), Epoch: 512}

	sol, err := price.ConvertSOL(fixed.New[fixed.N9](1_000_000_000_000), 512)
	if err != nil {
		t.Fatalf("ConvertSOL: %v", err)
	}
	if got, want := sol.Bits, uint64(1_050_000_000_000); got != want {
		t.Errorf("sol bits = %d, want %d", got, want)
	}

	if _, err := price.ConvertSOL(fixed.New[fixed.N9](1), 511); !errors.Is(err, ErrStaleLSTPrice) {
		t.Fatalf("err = %v, want ErrStaleLSTPrice", err)
	}
}

func TestConversionRoundTrip(t *testing.T) {
	solUSD := oracle.PriceRange[fixed.N8]{
		Lower: fixed.New[fixed.N8](2_000_000_000),
		Upper: fixed.New[fixed.N8](2_001_000_000),
	}
	conv := NewConversion(solUSD, fixed.New[fixed.N9](1_050_000_000))
	nav := fixed.One[fixed.N9]()

	amounts := []uint64{1_000, 999_999_999, 123_456_789_123, 1_000_000_000_000}
	for _, bits := range amounts {
		in := fixed.New[fixed.N9](bits)
		tokens, err := conv.LSTToToken(in, nav)
		if err != nil {
			t.Fatalf("LSTToToken(%d): %v", bits, err)
		}
		back, err := conv.TokenToLST(tokens, nav)
		if err != nil {
			t.Fatalf("TokenToLST(%d): %v", tokens.Bits, err)
		}
		if back.Cmp(in) > 0 {
			t.Errorf("round trip of %d gained value: got %d", bits, back.Bits)
		}
		// Flooring may lose at most one token quantum's worth of LST.
		ulp, err := conv.TokenToLST(fixed.New[fixed.N6](1), nav)
		if err != nil {
			t.Fatalf("TokenToLST(ulp): %v", err)
		}
		if loss := in.Bits - back.Bits; loss > ulp.Bits+1 {
			t.Errorf("round trip of %d lost %d LST bits, want <= %d", bits, loss, ulp.Bits+1)
		}
	}
}

func TestConversionKnownAmounts(t *testing.T) {
	solUSD := oracle.PriceRange[fixed.N8]{
		Lower: fixed.New[fixed.N8](2_000_000_000),
		Upper: fixed.New[fixed.N8](2_001_000_000),
	}
	conv := NewConversion(solUSD, fixed.New[fixed.N9](1_050_000_000))

	// 1000 LST x 1.05 SOL/LST x 20.00 USD/SOL at a 1.0 NAV = 21,000 tokens.
	tokens, err := conv.LSTToToken(fixed.New[fixed.N9](1_000_000_000_000), fixed.One[fixed.N9]())
	if err != nil {
		t.Fatalf("LSTToToken: %v", err)
	}
	if got, want := tokens.Bits, uint64(21_000_000_000); got != want {
		t.Errorf("tokens bits = %d, want %d", got, want)
	}

	// 21,000 tokens back to LST inverts exactly here.
	lst, err := conv.TokenToLST(tokens, fixed.One[fixed.N9]())
	if err != nil {
		t.Fatalf("TokenToLST: %v", err)
	}
	if got, want := lst.Bits, uint64(1_000_000_000_000); got != want {
		t.Errorf("lst bits = %d, want %d", got, want)
	}
}

func TestSwapConversionDirections(t *testing.T) {
	swap := NewSwapConversion(
		fixed.One[fixed.N9](),
		oracle.PriceRange[fixed.N9]{
			Lower: fixed.New[fixed.N9](5_000_000_000),
			Upper: fixed.New[fixed.N9](5_010_000_000),
		},
	)

	// 1000 stablecoin into levercoin at the 5.01 mint NAV.
	lever, err := swap.StableToLever(fixed.New[fixed.N6](1_000_000_000))
	if err != nil {
		t.Fatalf("StableToLever: %v", err)
	}
	if got, want := lever.Bits, uint64(199_600_798); got != want {
		t.Errorf("lever bits = %d, want %d", got, want)
	}

	// Swapping straight back prices levercoin at the 5.00 redeem NAV, so
	// the round trip never gains.
	stable, err := swap.LeverToStable(lever)
	if err != nil {
		t.Fatalf("LeverToStable: %v", err)
	}
	if got, want := stable.Bits, uint64(998_003_990); got != want {
		t.Errorf("stable bits = %d, want %d", got, want)
	}
	if stable.Cmp(fixed.New[fixed.N6](1_000_000_000)) > 0 {
		t.Errorf("round trip gained value: %s", stable)
	}
}

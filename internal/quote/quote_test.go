package quote

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"solana-exchange-core/internal/collateral"
	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/stability"
)

type fixedClock struct {
	epoch uint64
	now   int64
}

func (c fixedClock) Epoch() uint64   { return c.epoch }
func (c fixedClock) UnixTime() int64 { return c.now }

const (
	testEpoch = uint64(512)
	testNow   = int64(1_700_000_000)
)

var (
	stablecoinMintKey = solana.MustPubkey("So11111111111111111111111111111111111111112")
	lstMintKey        = solana.MustPubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// decayContext builds the reference book: 1,000,000 SOL of collateral at
// 20.005 +/- 0.005 USD against 15,000,000 stablecoin and 1,000,000
// levercoin, ratio 1.333333333, decay mode.
func decayContext(t *testing.T) *exchange.Context {
	t.Helper()

	controller, err := stability.NewController(
		fixed.New[fixed.N9](1_500_000_000),
		fixed.New[fixed.N9](1_200_000_000),
	)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	stablecoinFees := exchange.StablecoinFees{
		Mint: exchange.NewSchedule(map[stability.Mode]fixed.UFix[fixed.N9]{
			stability.Stable: fixed.New[fixed.N9](1_000_000),
			stability.Decay:  fixed.New[fixed.N9](5_000_000),
		}),
		Redeem: exchange.NewSchedule(map[stability.Mode]fixed.UFix[fixed.N9]{
			stability.Stable: fixed.New[fixed.N9](1_000_000),
			stability.Decay:  fixed.New[fixed.N9](5_000_000),
			stability.Depeg:  fixed.New[fixed.N9](20_000_000),
		}),
	}
	levercoinFees := exchange.LevercoinFees{
		Mint: exchange.NewSchedule(map[stability.Mode]fixed.UFix[fixed.N9]{
			stability.Stable: fixed.New[fixed.N9](2_000_000),
			stability.Decay:  fixed.New[fixed.N9](10_000_000),
			stability.Depeg:  fixed.New[fixed.N9](30_000_000),
		}),
		Redeem: exchange.NewSchedule(map[stability.Mode]fixed.UFix[fixed.N9]{
			stability.Stable: fixed.New[fixed.N9](2_000_000),
			stability.Decay:  fixed.New[fixed.N9](10_000_000),
			stability.Depeg:  fixed.New[fixed.N9](30_000_000),
		}),
		SwapToStablecoin: exchange.NewSchedule(map[stability.Mode]fixed.UFix[fixed.N9]{
			stability.Stable: fixed.New[fixed.N9](1_000_000),
			stability.Decay:  fixed.New[fixed.N9](5_000_000),
		}),
		SwapFromStablecoin: exchange.NewSchedule(map[stability.Mode]fixed.UFix[fixed.N9]{
			stability.Stable: fixed.New[fixed.N9](1_000_000),
			stability.Decay:  fixed.New[fixed.N9](2_000_000),
			stability.Depeg:  fixed.Zero[fixed.N9](),
		}),
	}

	leverSupply := uint64(1_000_000_000_000)
	ctx, err := exchange.Load(
		fixedClock{epoch: testEpoch, now: testNow},
		collateral.NewCache(1_000_000_000_000_000, testEpoch),
		controller,
		oracle.Config{MaxStalenessSecs: 60, ConfTolerance: fixed.New[fixed.N8](1_000_000)},
		stablecoinFees,
		levercoinFees,
		oracle.PriceUpdate{Price: 2_000_500_000, Conf: 500_000, Exponent: -8, PublishTime: testNow - 5},
		15_000_000_000_000,
		&leverSupply,
	)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ctx
}

func lstAtPrice(bits uint64) LSTInfo {
	return LSTInfo{
		Mint:  lstMintKey,
		Price: exchange.LSTPrice{SOLPerLST: fixed.New[fixed.N9](bits), Epoch: testEpoch},
	}
}

func wantPct(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("fee pct = %s, want %s", got, want)
	}
}

func TestStablecoinMint(t *testing.T) {
	ctx := decayContext(t)

	// 1000 LST at 1.05 SOL/LST: 0.5% decay fee on the input, remainder
	// converted at the 20.00 lower bound.
	q, err := StablecoinMint(ctx, lstAtPrice(1_050_000_000), fixed.New[fixed.N9](1_000_000_000_000))
	if err != nil {
		t.Fatalf("StablecoinMint: %v", err)
	}
	if q.InAmount != 1_000_000_000_000 {
		t.Errorf("in = %d", q.InAmount)
	}
	if q.FeeAmount != 5_000_000_000 {
		t.Errorf("fee = %d, want 5000000000", q.FeeAmount)
	}
	if q.OutAmount != 20_895_000_000 {
		t.Errorf("out = %d, want 20895000000", q.OutAmount)
	}
	if q.FeeMint != lstMintKey {
		t.Errorf("fee mint = %s, want LST", q.FeeMint)
	}
	wantPct(t, q.FeePct, "0.005")
}

func TestStablecoinMintExceedsCeiling(t *testing.T) {
	ctx := decayContext(t)

	// 100,000 LST converts to roughly 2.09M stablecoin, past the 1.675M
	// mint headroom.
	_, err := StablecoinMint(ctx, lstAtPrice(1_050_000_000), fixed.New[fixed.N9](100_000_000_000_000))
	if !errors.Is(err, exchange.ErrExceedsMaxMintable) {
		t.Fatalf("err = %v, want ErrExceedsMaxMintable", err)
	}
}

func TestStablecoinRedeem(t *testing.T) {
	ctx := decayContext(t)

	// 21,000 stablecoin converts to 1000 LST, then the 0.5% fee comes out
	// of the LST.
	q, err := StablecoinRedeem(ctx, lstAtPrice(1_050_000_000), fixed.New[fixed.N6](21_000_000_000))
	if err != nil {
		t.Fatalf("StablecoinRedeem: %v", err)
	}
	if q.FeeAmount != 5_000_000_000 {
		t.Errorf("fee = %d, want 5000000000", q.FeeAmount)
	}
	if q.OutAmount != 995_000_000_000 {
		t.Errorf("out = %d, want 995000000000", q.OutAmount)
	}
	wantPct(t, q.FeePct, "0.005")
}

func TestLevercoinMint(t *testing.T) {
	ctx := decayContext(t)

	// 1000 LST at 1.0: 1% decay fee, remainder converted at the 5.01 mint
	// NAV with the 20.00 lower bound.
	q, err := LevercoinMint(ctx, lstAtPrice(1_000_000_000), fixed.New[fixed.N9](1_000_000_000_000))
	if err != nil {
		t.Fatalf("LevercoinMint: %v", err)
	}
	if q.FeeAmount != 10_000_000_000 {
		t.Errorf("fee = %d, want 10000000000", q.FeeAmount)
	}
	if q.OutAmount != 3_952_095_808 {
		t.Errorf("out = %d, want 3952095808", q.OutAmount)
	}
	wantPct(t, q.FeePct, "0.01")
}

func TestLevercoinRedeem(t *testing.T) {
	ctx := decayContext(t)

	// 1000 levercoin at the 5.00 redeem NAV is 250 LST; 1% fee on output.
	q, err := LevercoinRedeem(ctx, lstAtPrice(1_000_000_000), fixed.New[fixed.N6](1_000_000_000))
	if err != nil {
		t.Fatalf("LevercoinRedeem: %v", err)
	}
	if q.FeeAmount != 2_500_000_000 {
		t.Errorf("fee = %d, want 2500000000", q.FeeAmount)
	}
	if q.OutAmount != 247_500_000_000 {
		t.Errorf("out = %d, want 247500000000", q.OutAmount)
	}
	wantPct(t, q.FeePct, "0.01")
}

func TestStableToLeverSwap(t *testing.T) {
	ctx := decayContext(t)

	q, err := StableToLeverSwap(ctx, stablecoinMintKey, fixed.New[fixed.N6](1_000_000_000))
	if err != nil {
		t.Fatalf("StableToLeverSwap: %v", err)
	}
	if q.FeeAmount != 2_000_000 {
		t.Errorf("fee = %d, want 2000000", q.FeeAmount)
	}
	if q.OutAmount != 199_201_596 {
		t.Errorf("out = %d, want 199201596", q.OutAmount)
	}
	if q.FeeMint != stablecoinMintKey {
		t.Errorf("fee mint = %s, want stablecoin", q.FeeMint)
	}
	wantPct(t, q.FeePct, "0.002")
}

func TestLeverToStableSwap(t *testing.T) {
	ctx := decayContext(t)

	// 1000 levercoin converts to 5000 stablecoin at the redeem NAV; the
	// swap ceiling is checked on the converted total before the fee.
	q, err := LeverToStableSwap(ctx, stablecoinMintKey, fixed.New[fixed.N6](1_000_000_000))
	if err != nil {
		t.Fatalf("LeverToStableSwap: %v", err)
	}
	if q.FeeAmount != 25_000_000 {
		t.Errorf("fee = %d, want 25000000", q.FeeAmount)
	}
	if q.OutAmount != 4_975_000_000 {
		t.Errorf("out = %d, want 4975000000", q.OutAmount)
	}
	wantPct(t, q.FeePct, "0.005")
}

func TestLeverToStableSwapExceedsCeiling(t *testing.T) {
	ctx := decayContext(t)

	// 400,000 levercoin converts to 2M stablecoin, past the 1.667M swap
	// headroom.
	_, err := LeverToStableSwap(ctx, stablecoinMintKey, fixed.New[fixed.N6](400_000_000_000))
	if !errors.Is(err, exchange.ErrExceedsMaxSwappable) {
		t.Fatalf("err = %v, want ErrExceedsMaxSwappable", err)
	}
}

func TestPoolShareMint(t *testing.T) {
	ctx := decayContext(t)
	pool := PoolState{
		ShareSupply:      fixed.New[fixed.N6](1_200_000_000),
		StablecoinInPool: fixed.New[fixed.N6](1_000_000_000),
		LevercoinInPool:  fixed.New[fixed.N6](100_000_000),
		WithdrawalFee:    fixed.New[fixed.N9](10_000_000),
	}

	q, err := PoolShareMint(ctx, stablecoinMintKey, pool, fixed.New[fixed.N6](100_000_000))
	if err != nil {
		t.Fatalf("PoolShareMint: %v", err)
	}
	if q.FeeAmount != 0 {
		t.Errorf("fee = %d, want 0", q.FeeAmount)
	}
	if q.OutAmount != 79_946_702 {
		t.Errorf("out = %d, want 79946702", q.OutAmount)
	}
	if !q.FeePct.IsZero() {
		t.Errorf("fee pct = %s, want 0", q.FeePct)
	}
}

func TestPoolShareRedeem(t *testing.T) {
	pool := PoolState{
		ShareSupply:      fixed.New[fixed.N6](1_000_000_000),
		StablecoinInPool: fixed.New[fixed.N6](1_000_000_000),
		WithdrawalFee:    fixed.New[fixed.N9](10_000_000),
	}

	q, err := PoolShareRedeem(stablecoinMintKey, pool, fixed.New[fixed.N6](100_000_000))
	if err != nil {
		t.Fatalf("PoolShareRedeem: %v", err)
	}
	if q.FeeAmount != 1_000_000 {
		t.Errorf("fee = %d, want 1000000", q.FeeAmount)
	}
	if q.OutAmount != 99_000_000 {
		t.Errorf("out = %d, want 99000000", q.OutAmount)
	}
	wantPct(t, q.FeePct, "0.01")
}

func TestPoolShareRedeemBlockedByLevercoin(t *testing.T) {
	pool := PoolState{
		ShareSupply:      fixed.New[fixed.N6](1_000_000_000),
		StablecoinInPool: fixed.New[fixed.N6](900_000_000),
		LevercoinInPool:  fixed.New[fixed.N6](100_000_000),
		WithdrawalFee:    fixed.New[fixed.N9](10_000_000),
	}

	_, err := PoolShareRedeem(stablecoinMintKey, pool, fixed.New[fixed.N6](100_000_000))
	if !errors.Is(err, ErrLevercoinInPool) {
		t.Fatalf("err = %v, want ErrLevercoinInPool", err)
	}
}

func TestPoolShareRedeemLST(t *testing.T) {
	ctx := decayContext(t)
	pool := PoolState{
		ShareSupply:      fixed.New[fixed.N6](1_000_000_000),
		StablecoinInPool: fixed.New[fixed.N6](800_000_000),
		LevercoinInPool:  fixed.New[fixed.N6](40_000_000),
		WithdrawalFee:    fixed.New[fixed.N9](10_000_000),
	}

	// 100 shares of 1000 withdraw 80 stablecoin + 4 levercoin; the
	// withdrawal fee comes out of the stablecoin leg, then both legs
	// redeem to LST through their own fee paths.
	q, err := PoolShareRedeemLST(ctx, lstAtPrice(1_000_000_000), pool, fixed.New[fixed.N6](100_000_000))
	if err != nil {
		t.Fatalf("PoolShareRedeemLST: %v", err)
	}
	if q.InAmount != 100_000_000 {
		t.Errorf("in = %d", q.InAmount)
	}
	if q.FeeAmount != 79_769_900 {
		t.Errorf("fee = %d, want 79769900", q.FeeAmount)
	}
	if q.OutAmount != 4_920_230_100 {
		t.Errorf("out = %d, want 4920230100", q.OutAmount)
	}
	if q.FeeMint != lstMintKey {
		t.Errorf("fee mint = %s, want LST", q.FeeMint)
	}
	wantPct(t, q.FeePct, "0.016212636")
}

func TestFeePctDecimal(t *testing.T) {
	pct, err := FeePctDecimal(fixed.New[fixed.N6](5_000), fixed.New[fixed.N6](1_000_000))
	if err != nil {
		t.Fatalf("FeePctDecimal: %v", err)
	}
	wantPct(t, pct, "0.005")

	if _, err := FeePctDecimal(fixed.New[fixed.N6](1), fixed.Zero[fixed.N6]()); err == nil {
		t.Error("expected error for zero total")
	}
}

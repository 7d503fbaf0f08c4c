package state

import (
	"encoding/binary"
	"errors"
	"testing"

	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/stability"
)

type feeEntry struct {
	rate       uint64
	configured bool
}

// testFeeTable mirrors a typical on-chain fee configuration: stablecoin mint
// and the lever-to-stable swap have no depeg rate, the stable-to-lever swap
// is explicitly free in depeg.
func testFeeTable() [feeScheduleCount][3]feeEntry {
	return [feeScheduleCount][3]feeEntry{
		feeStablecoinMint:     {{1_000_000, true}, {5_000_000, true}, {0, false}},
		feeStablecoinRedeem:   {{1_000_000, true}, {5_000_000, true}, {20_000_000, true}},
		feeLevercoinMint:      {{2_000_000, true}, {10_000_000, true}, {30_000_000, true}},
		feeLevercoinRedeem:    {{2_000_000, true}, {10_000_000, true}, {30_000_000, true}},
		feeSwapToStablecoin:   {{1_000_000, true}, {5_000_000, true}, {0, false}},
		feeSwapFromStablecoin: {{1_000_000, true}, {2_000_000, true}, {0, true}},
	}
}

type headerParams struct {
	threshold1      uint64
	threshold2      uint64
	maxStaleness    uint64
	confTolerance   uint64
	collateralBits  uint64
	collateralEpoch uint64
	stablecoinMint  solana.Pubkey
	levercoinMint   solana.Pubkey
	oracleFeed      solana.Pubkey
	fees            [feeScheduleCount][3]feeEntry
}

func buildStateHeader(p headerParams) []byte {
	data := make([]byte, stateHeaderLen)
	binary.LittleEndian.PutUint64(data[8:16], p.threshold1)
	binary.LittleEndian.PutUint64(data[16:24], p.threshold2)
	binary.LittleEndian.PutUint64(data[24:32], p.maxStaleness)
	binary.LittleEndian.PutUint64(data[32:40], p.confTolerance)
	binary.LittleEndian.PutUint64(data[40:48], p.collateralBits)
	binary.LittleEndian.PutUint64(data[48:56], p.collateralEpoch)
	copy(data[56:88], p.stablecoinMint[:])
	copy(data[88:120], p.levercoinMint[:])
	copy(data[120:152], p.oracleFeed[:])

	off := 152
	for _, schedule := range p.fees {
		for _, entry := range schedule {
			binary.LittleEndian.PutUint64(data[off:off+8], entry.rate)
			if entry.configured {
				data[off+8] = 1
			}
			off += 9
		}
	}
	return data
}

func buildMint(supply uint64, decimals byte) []byte {
	data := make([]byte, 82)
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	return data
}

func buildTokenAccount(mint, owner solana.Pubkey, amount uint64) []byte {
	data := make([]byte, 165)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	return data
}

func buildPoolConfig(withdrawalFee uint64) []byte {
	data := make([]byte, poolConfigLen)
	binary.LittleEndian.PutUint64(data[8:16], withdrawalFee)
	return data
}

func buildLSTHeader(mint solana.Pubkey, solPerLST, epoch uint64) []byte {
	data := make([]byte, lstHeaderLen)
	copy(data[8:40], mint[:])
	binary.LittleEndian.PutUint64(data[40:48], solPerLST)
	binary.LittleEndian.PutUint64(data[48:56], epoch)
	return data
}

// buildPriceUpdate lays out a fully verified Pyth PriceUpdateV2 account.
func buildPriceUpdate(price int64, conf uint64, exponent int32, publishTime int64) []byte {
	data := make([]byte, 8+32+1+32+8+8+4+8)
	data[40] = 1 // verification level: full
	cursor := 41 + 32
	binary.LittleEndian.PutUint64(data[cursor:], uint64(price))
	binary.LittleEndian.PutUint64(data[cursor+8:], conf)
	binary.LittleEndian.PutUint32(data[cursor+16:], uint32(exponent))
	binary.LittleEndian.PutUint64(data[cursor+20:], uint64(publishTime))
	return data
}

func wantRate(t *testing.T, schedule exchange.Schedule, mode stability.Mode, want uint64) {
	t.Helper()
	rate, err := schedule.Rate(mode)
	if err != nil {
		t.Fatalf("Rate(%s): %v", mode, err)
	}
	if rate.Bits != want {
		t.Errorf("Rate(%s) = %d, want %d", mode, rate.Bits, want)
	}
}

func TestParseStateHeader(t *testing.T) {
	stableMint := solana.Pubkey{0x01}
	leverMint := solana.Pubkey{0x02}
	feed := solana.Pubkey{0x03}
	data := buildStateHeader(headerParams{
		threshold1:      1_500_000_000,
		threshold2:      1_200_000_000,
		maxStaleness:    60,
		confTolerance:   1_000_000,
		collateralBits:  1_000_000_000_000_000,
		collateralEpoch: 512,
		stablecoinMint:  stableMint,
		levercoinMint:   leverMint,
		oracleFeed:      feed,
		fees:            testFeeTable(),
	})

	h, err := ParseStateHeader(data)
	if err != nil {
		t.Fatalf("ParseStateHeader: %v", err)
	}
	if h.Threshold1.Bits != 1_500_000_000 || h.Threshold2.Bits != 1_200_000_000 {
		t.Errorf("thresholds = %d, %d", h.Threshold1.Bits, h.Threshold2.Bits)
	}
	if h.MaxStalenessSecs != 60 {
		t.Errorf("staleness = %d, want 60", h.MaxStalenessSecs)
	}
	if h.ConfTolerance.Bits != 1_000_000 {
		t.Errorf("tolerance = %d, want 1000000", h.ConfTolerance.Bits)
	}
	if h.CollateralTotalBits != 1_000_000_000_000_000 || h.CollateralEpoch != 512 {
		t.Errorf("collateral = %d epoch %d", h.CollateralTotalBits, h.CollateralEpoch)
	}
	if h.StablecoinMint != stableMint || h.LevercoinMint != leverMint || h.OracleFeed != feed {
		t.Errorf("pubkeys: %s %s %s", h.StablecoinMint, h.LevercoinMint, h.OracleFeed)
	}

	stable := h.StablecoinFees()
	wantRate(t, stable.Mint, stability.Stable, 1_000_000)
	wantRate(t, stable.Mint, stability.Decay, 5_000_000)
	if _, err := stable.Mint.Rate(stability.Depeg); !errors.Is(err, exchange.ErrFeeNotConfigured) {
		t.Errorf("depeg mint rate err = %v, want ErrFeeNotConfigured", err)
	}
	wantRate(t, stable.Redeem, stability.Depeg, 20_000_000)

	lever := h.LevercoinFees()
	wantRate(t, lever.Mint, stability.Decay, 10_000_000)
	wantRate(t, lever.Redeem, stability.Depeg, 30_000_000)
	wantRate(t, lever.SwapToStablecoin, stability.Stable, 1_000_000)
	if _, err := lever.SwapToStablecoin.Rate(stability.Depeg); !errors.Is(err, exchange.ErrFeeNotConfigured) {
		t.Errorf("depeg swap rate err = %v, want ErrFeeNotConfigured", err)
	}
	// Zero rate with the configured flag set is a real, free fee.
	wantRate(t, lever.SwapFromStablecoin, stability.Depeg, 0)
}

func TestParseStateHeaderTooShort(t *testing.T) {
	_, err := ParseStateHeader(make([]byte, stateHeaderLen-1))
	if !errors.Is(err, ErrBadAccountData) {
		t.Fatalf("err = %v, want ErrBadAccountData", err)
	}
}

func TestParsePoolConfig(t *testing.T) {
	cfg, err := ParsePoolConfig(buildPoolConfig(10_000_000))
	if err != nil {
		t.Fatalf("ParsePoolConfig: %v", err)
	}
	if cfg.WithdrawalFee.Bits != 10_000_000 {
		t.Errorf("withdrawal fee = %d, want 10000000", cfg.WithdrawalFee.Bits)
	}

	if _, err := ParsePoolConfig(make([]byte, poolConfigLen-1)); !errors.Is(err, ErrBadAccountData) {
		t.Errorf("short err = %v, want ErrBadAccountData", err)
	}
}

func TestParseLSTHeader(t *testing.T) {
	mint := solana.Pubkey{0x0a}
	h, err := ParseLSTHeader(buildLSTHeader(mint, 1_050_000_000, 512))
	if err != nil {
		t.Fatalf("ParseLSTHeader: %v", err)
	}
	if h.Mint != mint {
		t.Errorf("mint = %s", h.Mint)
	}
	if h.SOLPerLST.Bits != 1_050_000_000 || h.Epoch != 512 {
		t.Errorf("rate = %d epoch %d", h.SOLPerLST.Bits, h.Epoch)
	}

	price := h.Price()
	if price.SOLPerLST != h.SOLPerLST || price.Epoch != h.Epoch {
		t.Errorf("Price() = %+v", price)
	}

	if _, err := ParseLSTHeader(make([]byte, lstHeaderLen-1)); !errors.Is(err, ErrBadAccountData) {
		t.Errorf("short err = %v, want ErrBadAccountData", err)
	}
}

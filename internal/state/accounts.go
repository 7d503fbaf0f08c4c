// Package state maintains the protocol's on-chain account set: the exchange
// state header, token mints, stability pool accounts, and oracle feed. A
// tracker refreshes the set over RPC, applies WebSocket account updates, and
// hands out consistent snapshots that load exchange contexts.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/stability"
)

// Account data layouts, fixed-offset little-endian after an 8-byte
// discriminator, in the style of SPL account layouts.
const (
	stateHeaderLen = 314
	poolConfigLen  = 16
	lstHeaderLen   = 56
)

// Fee schedule order inside the state header.
const (
	feeStablecoinMint = iota
	feeStablecoinRedeem
	feeLevercoinMint
	feeLevercoinRedeem
	feeSwapToStablecoin
	feeSwapFromStablecoin
	feeScheduleCount
)

// ErrBadAccountData is returned when an account fails layout validation.
var ErrBadAccountData = errors.New("state: bad account data")

// StateHeader is the exchange's parameter account: stability thresholds,
// oracle limits, the epoch-tagged collateral cache, token mints, and the
// per-mode fee tables.
type StateHeader struct {
	Threshold1          fixed.UFix[fixed.N9]
	Threshold2          fixed.UFix[fixed.N9]
	MaxStalenessSecs    uint64
	ConfTolerance       fixed.UFix[fixed.N8]
	CollateralTotalBits uint64
	CollateralEpoch     uint64
	StablecoinMint      solana.Pubkey
	LevercoinMint       solana.Pubkey
	OracleFeed          solana.Pubkey

	schedules [feeScheduleCount]exchange.Schedule
}

// ParseStateHeader parses the state header account.
func ParseStateHeader(data []byte) (StateHeader, error) {
	if len(data) < stateHeaderLen {
		return StateHeader{}, fmt.Errorf("%w: state header needs %d bytes, got %d",
			ErrBadAccountData, stateHeaderLen, len(data))
	}
	var h StateHeader
	h.Threshold1 = fixed.New[fixed.N9](binary.LittleEndian.Uint64(data[8:16]))
	h.Threshold2 = fixed.New[fixed.N9](binary.LittleEndian.Uint64(data[16:24]))
	h.MaxStalenessSecs = binary.LittleEndian.Uint64(data[24:32])
	h.ConfTolerance = fixed.New[fixed.N8](binary.LittleEndian.Uint64(data[32:40]))
	h.CollateralTotalBits = binary.LittleEndian.Uint64(data[40:48])
	h.CollateralEpoch = binary.LittleEndian.Uint64(data[48:56])
	copy(h.StablecoinMint[:], data[56:88])
	copy(h.LevercoinMint[:], data[88:120])
	copy(h.OracleFeed[:], data[120:152])

	off := 152
	for i := 0; i < feeScheduleCount; i++ {
		rates := make(map[stability.Mode]fixed.UFix[fixed.N9], 3)
		for _, mode := range []stability.Mode{stability.Stable, stability.Decay, stability.Depeg} {
			rate := binary.LittleEndian.Uint64(data[off : off+8])
			configured := data[off+8] != 0
			off += 9
			if configured {
				rates[mode] = fixed.New[fixed.N9](rate)
			}
		}
		h.schedules[i] = exchange.NewSchedule(rates)
	}
	return h, nil
}

// StablecoinFees returns the stablecoin fee table.
func (h StateHeader) StablecoinFees() exchange.StablecoinFees {
	return exchange.StablecoinFees{
		Mint:   h.schedules[feeStablecoinMint],
		Redeem: h.schedules[feeStablecoinRedeem],
	}
}

// LevercoinFees returns the levercoin fee table.
func (h StateHeader) LevercoinFees() exchange.LevercoinFees {
	return exchange.LevercoinFees{
		Mint:               h.schedules[feeLevercoinMint],
		Redeem:             h.schedules[feeLevercoinRedeem],
		SwapToStablecoin:   h.schedules[feeSwapToStablecoin],
		SwapFromStablecoin: h.schedules[feeSwapFromStablecoin],
	}
}

// PoolConfig is the stability pool's parameter account.
type PoolConfig struct {
	WithdrawalFee fixed.UFix[fixed.N9]
}

// ParsePoolConfig parses the pool config account.
func ParsePoolConfig(data []byte) (PoolConfig, error) {
	if len(data) < poolConfigLen {
		return PoolConfig{}, fmt.Errorf("%w: pool config needs %d bytes, got %d",
			ErrBadAccountData, poolConfigLen, len(data))
	}
	return PoolConfig{
		WithdrawalFee: fixed.New[fixed.N9](binary.LittleEndian.Uint64(data[8:16])),
	}, nil
}

// LSTHeader is one LST's registry account: its mint and its epoch-tagged
// SOL exchange rate.
type LSTHeader struct {
	Mint      solana.Pubkey
	SOLPerLST fixed.UFix[fixed.N9]
	Epoch     uint64
}

// ParseLSTHeader parses an LST header account.
func ParseLSTHeader(data []byte) (LSTHeader, error) {
	if len(data) < lstHeaderLen {
		return LSTHeader{}, fmt.Errorf("%w: lst header needs %d bytes, got %d",
			ErrBadAccountData, lstHeaderLen, len(data))
	}
	var h LSTHeader
	copy(h.Mint[:], data[8:40])
	h.SOLPerLST = fixed.New[fixed.N9](binary.LittleEndian.Uint64(data[40:48]))
	h.Epoch = binary.LittleEndian.Uint64(data[48:56])
	return h, nil
}

// Price returns the header's exchange rate as an epoch-tagged LST price.
func (h LSTHeader) Price() exchange.LSTPrice {
	return exchange.LSTPrice{SOLPerLST: h.SOLPerLST, Epoch: h.Epoch}
}

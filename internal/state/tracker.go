package state

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"solana-exchange-core/internal/collateral"
	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/quote"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/stability"
)

// ErrNotReady is returned when a snapshot is requested before the first
// successful refresh.
var ErrNotReady = errors.New("state: tracker not refreshed yet")

// Addresses is the static account set the tracker watches. Token mints and
// the oracle feed are discovered from the state header.
type Addresses struct {
	StateHeader           solana.Pubkey
	PoolShareMint         solana.Pubkey
	PoolStablecoinAccount solana.Pubkey
	PoolLevercoinAccount  solana.Pubkey
	PoolConfig            solana.Pubkey
	LSTHeaders            []solana.Pubkey
}

// Snapshot is a consistent view of the protocol accounts at one point in
// time. Snapshots are values; a tracker refresh never mutates one already
// handed out.
type Snapshot struct {
	Epoch uint64
	Now   int64

	Header           StateHeader
	StablecoinSupply uint64
	LevercoinSupply  *uint64
	PoolShareSupply  uint64
	PoolStablecoin   uint64
	PoolLevercoin    uint64
	Pool             PoolConfig
	PriceUpdate      oracle.PriceUpdate

	// LSTs is keyed by LST mint.
	LSTs map[solana.Pubkey]LSTHeader
}

type snapshotClock struct {
	epoch uint64
	now   int64
}

func (c snapshotClock) Epoch() uint64   { return c.epoch }
func (c snapshotClock) UnixTime() int64 { return c.now }

// LoadContext builds an exchange context from the snapshot.
func (s Snapshot) LoadContext() (*exchange.Context, error) {
	controller, err := stability.NewController(s.Header.Threshold1, s.Header.Threshold2)
	if err != nil {
		return nil, err
	}
	return exchange.Load(
		snapshotClock{epoch: s.Epoch, now: s.Now},
		collateral.NewCache(s.Header.CollateralTotalBits, s.Header.CollateralEpoch),
		controller,
		oracle.Config{
			MaxStalenessSecs: s.Header.MaxStalenessSecs,
			ConfTolerance:    s.Header.ConfTolerance,
		},
		s.Header.StablecoinFees(),
		s.Header.LevercoinFees(),
		s.PriceUpdate,
		s.StablecoinSupply,
		s.LevercoinSupply,
	)
}

// PoolState returns the stability pool view for pool-share quotes.
func (s Snapshot) PoolState() quote.PoolState {
	return quote.PoolState{
		ShareSupply:      fixed.New[fixed.N6](s.PoolShareSupply),
		StablecoinInPool: fixed.New[fixed.N6](s.PoolStablecoin),
		LevercoinInPool:  fixed.New[fixed.N6](s.PoolLevercoin),
		WithdrawalFee:    s.Pool.WithdrawalFee,
	}
}

// LST returns quote info for an LST mint known to the tracker.
func (s Snapshot) LST(mint solana.Pubkey) (quote.LSTInfo, bool) {
	header, ok := s.LSTs[mint]
	if !ok {
		return quote.LSTInfo{}, false
	}
	return quote.LSTInfo{Mint: header.Mint, Price: header.Price()}, true
}

// Tracker keeps the protocol account set current via RPC refreshes and
// WebSocket account updates.
type Tracker struct {
	rpc    solana.RPCClient
	ws     solana.WSClient
	addrs  Addresses
	logger *log.Logger

	mu    sync.RWMutex
	snap  Snapshot
	ready bool
	wg    sync.WaitGroup
}

// NewTracker creates a tracker. ws may be nil for RPC-only operation.
func NewTracker(rpc solana.RPCClient, ws solana.WSClient, addrs Addresses) *Tracker {
	return &Tracker{
		rpc:    rpc,
		ws:     ws,
		addrs:  addrs,
		logger: log.New(os.Stderr, "[state] ", log.LstdFlags),
	}
}

// Addresses returns the tracker's static address set.
func (t *Tracker) Addresses() Addresses {
	return t.addrs
}

// Refresh re-reads the full account set: the state header first, then the
// accounts it references plus the pool accounts in one batch.
func (t *Tracker) Refresh(ctx context.Context) error {
	epochInfo, err := t.rpc.GetEpochInfo(ctx)
	if err != nil {
		return fmt.Errorf("state: epoch info: %w", err)
	}

	headerInfo, err := t.rpc.GetAccountInfo(ctx, t.addrs.StateHeader)
	if err != nil {
		return fmt.Errorf("state: state header: %w", err)
	}
	if headerInfo == nil {
		return fmt.Errorf("%w: state header %s missing", ErrBadAccountData, t.addrs.StateHeader)
	}
	header, err := ParseStateHeader(headerInfo.Data)
	if err != nil {
		return err
	}

	batch := []solana.Pubkey{
		header.StablecoinMint,
		header.LevercoinMint,
		header.OracleFeed,
		t.addrs.PoolShareMint,
		t.addrs.PoolStablecoinAccount,
		t.addrs.PoolLevercoinAccount,
		t.addrs.PoolConfig,
	}
	batch = append(batch, t.addrs.LSTHeaders...)
	infos, err := t.rpc.GetMultipleAccounts(ctx, batch)
	if err != nil {
		return fmt.Errorf("state: account batch: %w", err)
	}
	if len(infos) != len(batch) {
		return fmt.Errorf("%w: batch returned %d of %d accounts", ErrBadAccountData, len(infos), len(batch))
	}

	snap := Snapshot{
		Epoch:  epochInfo.Epoch,
		Now:    time.Now().Unix(),
		Header: header,
		LSTs:   make(map[solana.Pubkey]LSTHeader, len(t.addrs.LSTHeaders)),
	}

	if infos[0] == nil {
		return fmt.Errorf("%w: stablecoin mint %s missing", ErrBadAccountData, header.StablecoinMint)
	}
	stableMint, err := solana.ParseMint(infos[0].Data)
	if err != nil {
		return err
	}
	snap.StablecoinSupply = stableMint.Supply

	// The levercoin mint may not exist yet; the exchange context treats
	// its supply as absent rather than zero.
	if infos[1] != nil {
		leverMint, err := solana.ParseMint(infos[1].Data)
		if err != nil {
			return err
		}
		snap.LevercoinSupply = &leverMint.Supply
	}

	if infos[2] == nil {
		return fmt.Errorf("%w: oracle feed %s missing", ErrBadAccountData, header.OracleFeed)
	}
	update, _, err := oracle.ParsePriceUpdate(infos[2].Data)
	if err != nil {
		return err
	}
	snap.PriceUpdate = update

	if infos[3] != nil {
		shareMint, err := solana.ParseMint(infos[3].Data)
		if err != nil {
			return err
		}
		snap.PoolShareSupply = shareMint.Supply
	}
	if infos[4] != nil {
		acc, err := solana.ParseTokenAccount(infos[4].Data)
		if err != nil {
			return err
		}
		snap.PoolStablecoin = acc.Amount
	}
	if infos[5] != nil {
		acc, err := solana.ParseTokenAccount(infos[5].Data)
		if err != nil {
			return err
		}
		snap.PoolLevercoin = acc.Amount
	}
	if infos[6] != nil {
		cfg, err := ParsePoolConfig(infos[6].Data)
		if err != nil {
			return err
		}
		snap.Pool = cfg
	}
	for i, info := range infos[7:] {
		if info == nil {
			t.logger.Printf("lst header %s missing, skipping", t.addrs.LSTHeaders[i])
			continue
		}
		lst, err := ParseLSTHeader(info.Data)
		if err != nil {
			return err
		}
		snap.LSTs[lst.Mint] = lst
	}

	t.mu.Lock()
	t.snap = snap
	t.ready = true
	t.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current view.
func (t *Tracker) Snapshot() (Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.ready {
		return Snapshot{}, ErrNotReady
	}
	snap := t.snap
	snap.Now = time.Now().Unix()
	snap.LSTs = make(map[solana.Pubkey]LSTHeader, len(t.snap.LSTs))
	for mint, header := range t.snap.LSTs {
		snap.LSTs[mint] = header
	}
	if t.snap.LevercoinSupply != nil {
		supply := *t.snap.LevercoinSupply
		snap.LevercoinSupply = &supply
	}
	return snap, nil
}

// Watch subscribes to the watched accounts and applies updates until ctx is
// cancelled. Requires a prior successful Refresh to know the
// header-referenced accounts.
func (t *Tracker) Watch(ctx context.Context) error {
	if t.ws == nil {
		return errors.New("state: no websocket client configured")
	}
	t.mu.RLock()
	if !t.ready {
		t.mu.RUnlock()
		return ErrNotReady
	}
	header := t.snap.Header
	t.mu.RUnlock()

	watched := []solana.Pubkey{
		t.addrs.StateHeader,
		header.StablecoinMint,
		header.LevercoinMint,
		header.OracleFeed,
		t.addrs.PoolShareMint,
		t.addrs.PoolStablecoinAccount,
		t.addrs.PoolLevercoinAccount,
		t.addrs.PoolConfig,
	}
	watched = append(watched, t.addrs.LSTHeaders...)

	for _, pubkey := range watched {
		if pubkey.IsZero() {
			continue
		}
		ch, err := t.ws.SubscribeAccount(ctx, pubkey)
		if err != nil {
			return fmt.Errorf("state: subscribe %s: %w", pubkey, err)
		}
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case notif, ok := <-ch:
					if !ok {
						return
					}
					if err := t.apply(notif, header); err != nil {
						t.logger.Printf("update %s: %v", notif.Pubkey, err)
					}
				}
			}
		}()
	}
	return nil
}

// Wait blocks until all watch goroutines have exited.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// apply routes one account update into the snapshot.
func (t *Tracker) apply(notif solana.AccountNotification, header StateHeader) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch notif.Pubkey {
	case t.addrs.StateHeader:
		parsed, err := ParseStateHeader(notif.Data)
		if err != nil {
			return err
		}
		t.snap.Header = parsed
	case header.StablecoinMint:
		mint, err := solana.ParseMint(notif.Data)
		if err != nil {
			return err
		}
		t.snap.StablecoinSupply = mint.Supply
	case header.LevercoinMint:
		mint, err := solana.ParseMint(notif.Data)
		if err != nil {
			return err
		}
		supply := mint.Supply
		t.snap.LevercoinSupply = &supply
	case header.OracleFeed:
		update, _, err := oracle.ParsePriceUpdate(notif.Data)
		if err != nil {
			return err
		}
		t.snap.PriceUpdate = update
	case t.addrs.PoolShareMint:
		mint, err := solana.ParseMint(notif.Data)
		if err != nil {
			return err
		}
		t.snap.PoolShareSupply = mint.Supply
	case t.addrs.PoolStablecoinAccount:
		acc, err := solana.ParseTokenAccount(notif.Data)
		if err != nil {
			return err
		}
		t.snap.PoolStablecoin = acc.Amount
	case t.addrs.PoolLevercoinAccount:
		acc, err := solana.ParseTokenAccount(notif.Data)
		if err != nil {
			return err
		}
		t.snap.PoolLevercoin = acc.Amount
	case t.addrs.PoolConfig:
		cfg, err := ParsePoolConfig(notif.Data)
		if err != nil {
			return err
		}
		t.snap.Pool = cfg
	default:
		lst, err := ParseLSTHeader(notif.Data)
		if err != nil {
			return err
		}
		t.snap.LSTs[lst.Mint] = lst
	}
	return nil
}

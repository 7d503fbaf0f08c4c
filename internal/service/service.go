// Package service ties the account tracker, the exchange core, and the
// storage layer together behind the two operations the server exposes:
// priced quotes for the supported trading pairs and protocol health samples.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"solana-exchange-core/internal/collateral"
	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/exchange"
	"solana-exchange-core/internal/fixed"
	"solana-exchange-core/internal/idhash"
	"solana-exchange-core/internal/observability"
	"solana-exchange-core/internal/oracle"
	"solana-exchange-core/internal/quote"
	"solana-exchange-core/internal/solana"
	"solana-exchange-core/internal/state"
	"solana-exchange-core/internal/storage"
)

var (
	// ErrUnknownMint is returned when a quoted mint is neither a protocol
	// token nor a supported LST.
	ErrUnknownMint = errors.New("service: unknown mint")

	// ErrUnsupportedPair is returned when both mints are known but no
	// operation trades between them.
	ErrUnsupportedPair = errors.New("service: unsupported trading pair")
)

// mintKind classifies a mint within the protocol's token set.
type mintKind int

const (
	kindUnknown mintKind = iota
	kindStablecoin
	kindLevercoin
	kindPoolShare
	kindLST
)

// QuoteService serves quotes and health samples off the tracker's current
// snapshot. Storage is best effort: a failed insert is logged, never
// surfaced to the caller.
type QuoteService struct {
	tracker *state.Tracker
	quotes  storage.QuoteHistoryStore
	health  storage.HealthTimeseriesStore
	logger  *log.Logger
}

// NewQuoteService creates a service. Either store may be nil to disable
// persistence of that record type.
func NewQuoteService(tracker *state.Tracker, quotes storage.QuoteHistoryStore, health storage.HealthTimeseriesStore) *QuoteService {
	return &QuoteService{
		tracker: tracker,
		quotes:  quotes,
		health:  health,
		logger:  log.New(os.Stderr, "[service] ", log.LstdFlags),
	}
}

// Quote prices a hypothetical swap of amount raw bits of inputMint into
// outputMint against the current snapshot, persists the result, and returns
// it.
func (s *QuoteService) Quote(ctx context.Context, inputMint, outputMint solana.Pubkey, amount uint64) (*domain.QuoteRecord, error) {
	start := time.Now()

	snap, err := s.tracker.Snapshot()
	if err != nil {
		return nil, err
	}

	operation, err := s.resolveOperation(snap, inputMint, outputMint)
	if err != nil {
		observability.RecordQuoteError("unresolved", errorKind(err))
		return nil, err
	}

	exctx, err := snap.LoadContext()
	if err != nil {
		observability.DefaultMetrics.ContextLoadError.Inc()
		observability.RecordQuoteError(operation, errorKind(err))
		return nil, err
	}

	q, err := s.dispatch(exctx, snap, operation, inputMint, outputMint, amount)
	if err != nil {
		observability.RecordQuoteError(operation, errorKind(err))
		return nil, err
	}

	now := time.Now()
	record := &domain.QuoteRecord{
		QuoteID:         idhash.ComputeQuoteID(operation, inputMint.String(), outputMint.String(), amount, now.UnixMilli(), snap.Epoch),
		TimestampMs:     now.UnixMilli(),
		Epoch:           int64(snap.Epoch),
		Operation:       operation,
		InputMint:       inputMint.String(),
		OutputMint:      outputMint.String(),
		InAmount:        int64(q.InAmount),
		OutAmount:       int64(q.OutAmount),
		FeeAmount:       int64(q.FeeAmount),
		FeeMint:         q.FeeMint.String(),
		FeePct:          q.FeePct.String(),
		StabilityMode:   exctx.StabilityMode().String(),
		CollateralRatio: exctx.CollateralRatio().Float64(),
	}

	if s.quotes != nil {
		dbStart := time.Now()
		insertErr := s.quotes.Insert(ctx, record)
		if errors.Is(insertErr, storage.ErrDuplicateKey) {
			insertErr = nil
		}
		observability.RecordDBQuery("quote_history", "insert", time.Since(dbStart).Seconds(), insertErr)
		if insertErr != nil {
			s.logger.Printf("quote %s not persisted: %v", record.QuoteID, insertErr)
		}
	}

	observability.RecordQuote(operation, time.Since(start).Seconds())
	return record, nil
}

// resolveOperation maps a mint pair to one of the supported operations.
func (s *QuoteService) resolveOperation(snap state.Snapshot, inputMint, outputMint solana.Pubkey) (string, error) {
	in, err := s.classify(snap, inputMint)
	if err != nil {
		return "", err
	}
	out, err := s.classify(snap, outputMint)
	if err != nil {
		return "", err
	}

	switch {
	case in == kindLST && out == kindStablecoin:
		return domain.OpStablecoinMint, nil
	case in == kindStablecoin && out == kindLST:
		return domain.OpStablecoinRedeem, nil
	case in == kindLST && out == kindLevercoin:
		return domain.OpLevercoinMint, nil
	case in == kindLevercoin && out == kindLST:
		return domain.OpLevercoinRedeem, nil
	case in == kindStablecoin && out == kindLevercoin:
		return domain.OpStableToLeverSwap, nil
	case in == kindLevercoin && out == kindStablecoin:
		return domain.OpLeverToStableSwap, nil
	case in == kindStablecoin && out == kindPoolShare:
		return domain.OpPoolShareMint, nil
	case in == kindPoolShare && out == kindStablecoin:
		return domain.OpPoolShareRedeem, nil
	case in == kindPoolShare && out == kindLST:
		return domain.OpPoolShareRedeemLST, nil
	}
	return "", fmt.Errorf("%w: %s -> %s", ErrUnsupportedPair, inputMint, outputMint)
}

func (s *QuoteService) classify(snap state.Snapshot, mint solana.Pubkey) (mintKind, error) {
	switch mint {
	case snap.Header.StablecoinMint:
		return kindStablecoin, nil
	case snap.Header.LevercoinMint:
		return kindLevercoin, nil
	case s.tracker.Addresses().PoolShareMint:
		return kindPoolShare, nil
	}
	if _, ok := snap.LSTs[mint]; ok {
		return kindLST, nil
	}
	return kindUnknown, fmt.Errorf("%w: %s", ErrUnknownMint, mint)
}

// dispatch runs the quote function for an already-resolved operation. LST
// amounts carry 9 fractional digits, protocol tokens 6.
func (s *QuoteService) dispatch(exctx *exchange.Context, snap state.Snapshot, operation string, inputMint, outputMint solana.Pubkey, amount uint64) (quote.Quote, error) {
	stablecoinMint := snap.Header.StablecoinMint

	switch operation {
	case domain.OpStablecoinMint:
		lst, ok := snap.LST(inputMint)
		if !ok {
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrUnknownMint, inputMint)
		}
		return quote.StablecoinMint(exctx, lst, fixed.New[fixed.N9](amount))
	case domain.OpStablecoinRedeem:
		lst, ok := snap.LST(outputMint)
		if !ok {
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrUnknownMint, outputMint)
		}
		return quote.StablecoinRedeem(exctx, lst, fixed.New[fixed.N6](amount))
	case domain.OpLevercoinMint:
		lst, ok := snap.LST(inputMint)
		if !ok {
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrUnknownMint, inputMint)
		}
		return quote.LevercoinMint(exctx, lst, fixed.New[fixed.N9](amount))
	case domain.OpLevercoinRedeem:
		lst, ok := snap.LST(outputMint)
		if !ok {
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrUnknownMint, outputMint)
		}
		return quote.LevercoinRedeem(exctx, lst, fixed.New[fixed.N6](amount))
	case domain.OpStableToLeverSwap:
		return quote.StableToLeverSwap(exctx, stablecoinMint, fixed.New[fixed.N6](amount))
	case domain.OpLeverToStableSwap:
		return quote.LeverToStableSwap(exctx, stablecoinMint, fixed.New[fixed.N6](amount))
	case domain.OpPoolShareMint:
		return quote.PoolShareMint(exctx, stablecoinMint, snap.PoolState(), fixed.New[fixed.N6](amount))
	case domain.OpPoolShareRedeem:
		return quote.PoolShareRedeem(stablecoinMint, snap.PoolState(), fixed.New[fixed.N6](amount))
	case domain.OpPoolShareRedeemLST:
		lst, ok := snap.LST(outputMint)
		if !ok {
			return quote.Quote{}, fmt.Errorf("%w: %s", ErrUnknownMint, outputMint)
		}
		return quote.PoolShareRedeemLST(exctx, lst, snap.PoolState(), fixed.New[fixed.N6](amount))
	}
	return quote.Quote{}, fmt.Errorf("%w: %s", ErrUnsupportedPair, operation)
}

// HealthSample builds a protocol health point from the current snapshot,
// updates the health gauges, and persists the point when a health store is
// configured.
func (s *QuoteService) HealthSample(ctx context.Context) (*domain.HealthPoint, error) {
	snap, err := s.tracker.Snapshot()
	if err != nil {
		return nil, err
	}
	exctx, err := snap.LoadContext()
	if err != nil {
		observability.DefaultMetrics.ContextLoadError.Inc()
		return nil, err
	}

	tvl, err := exctx.TotalValueLocked()
	if err != nil {
		return nil, err
	}
	stablecoinNAV, err := exctx.StablecoinNAV()
	if err != nil {
		return nil, err
	}

	point := &domain.HealthPoint{
		TimestampMs:      time.Now().UnixMilli(),
		Epoch:            int64(snap.Epoch),
		CollateralRatio:  exctx.CollateralRatio().Float64(),
		TVLUSD:           tvl.Float64(),
		SOLPriceLower:    exctx.SOLUSDPrice().Lower.Float64(),
		SOLPriceUpper:    exctx.SOLUSDPrice().Upper.Float64(),
		StablecoinSupply: exctx.StablecoinSupply().Float64(),
		StablecoinNAV:    stablecoinNAV.Float64(),
		StabilityMode:    exctx.StabilityMode().String(),
	}

	// The levercoin mint may not exist yet; its supply and NAVs stay unset
	// until it does.
	if leverSupply, err := exctx.LevercoinSupply(); err == nil {
		supply := leverSupply.Float64()
		point.LevercoinSupply = &supply
		mintNAV, err := exctx.LevercoinMintNAV()
		if err != nil {
			return nil, err
		}
		redeemNAV, err := exctx.LevercoinRedeemNAV()
		if err != nil {
			return nil, err
		}
		point.LevercoinMintNAV = mintNAV.Float64()
		point.LevercoinRedeemNAV = redeemNAV.Float64()
	} else if !errors.Is(err, exchange.ErrMissingLevercoinSupply) {
		return nil, err
	}

	observability.UpdateProtocolHealth(point.CollateralRatio, point.TVLUSD,
		int(exctx.StabilityMode()), point.StablecoinNAV, point.LevercoinRedeemNAV)
	observability.DefaultMetrics.OracleAge.Set(float64(snap.Now - snap.PriceUpdate.PublishTime))

	if s.health != nil {
		dbStart := time.Now()
		insertErr := s.health.InsertBulk(ctx, []*domain.HealthPoint{point})
		if errors.Is(insertErr, storage.ErrDuplicateKey) {
			insertErr = nil
		}
		observability.RecordDBQuery("health_timeseries", "insert", time.Since(dbStart).Seconds(), insertErr)
		if insertErr != nil {
			s.logger.Printf("health point %d not persisted: %v", point.TimestampMs, insertErr)
		}
	}
	return point, nil
}

// errorKind buckets quote failures for metrics labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrUnknownMint):
		return "unknown_mint"
	case errors.Is(err, ErrUnsupportedPair):
		return "unsupported_pair"
	case errors.Is(err, state.ErrNotReady):
		return "not_ready"
	case errors.Is(err, oracle.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, oracle.ErrConfidenceExceeded):
		return "confidence_exceeded"
	case errors.Is(err, oracle.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, collateral.ErrStaleCache):
		return "stale_collateral"
	case errors.Is(err, exchange.ErrMissingLevercoinSupply):
		return "missing_levercoin_supply"
	case errors.Is(err, exchange.ErrExceedsMaxMintable):
		return "exceeds_max_mintable"
	case errors.Is(err, exchange.ErrExceedsMaxSwappable):
		return "exceeds_max_swappable"
	case errors.Is(err, exchange.ErrFeeNotConfigured):
		return "fee_not_configured"
	case errors.Is(err, exchange.ErrStaleLSTPrice):
		return "stale_lst_price"
	case errors.Is(err, quote.ErrLevercoinInPool):
		return "levercoin_in_pool"
	case errors.Is(err, fixed.ErrOverflow), errors.Is(err, fixed.ErrUnderflow),
		errors.Is(err, fixed.ErrDivisionByZero):
		return "arithmetic"
	}
	return "internal"
}

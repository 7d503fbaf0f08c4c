package memory

import (
	"context"
	"errors"
	"testing"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/storage"
)

func quoteFixture(quoteID string, ts int64) *domain.QuoteRecord {
	return &domain.QuoteRecord{
		QuoteID:     quoteID,
		TimestampMs: ts,
		Operation:   domain.OpStablecoinMint,
		InAmount:    1000,
		OutAmount:   990,
	}
}

func TestQuoteHistoryStoreInsertAndGet(t *testing.T) {
	store := NewQuoteHistoryStore()
	ctx := context.Background()

	if err := store.Insert(ctx, quoteFixture("q1", 1000)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := store.GetByID(ctx, "q1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.QuoteID != "q1" || got.TimestampMs != 1000 {
		t.Errorf("got %+v", got)
	}

	if err := store.Insert(ctx, quoteFixture("q1", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("duplicate err = %v", err)
	}
	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil err = %v", err)
	}
}

func TestQuoteHistoryStoreInsertBulkAtomic(t *testing.T) {
	store := NewQuoteHistoryStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.QuoteRecord{
		quoteFixture("q1", 1000),
		quoteFixture("q1", 2000),
	})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("intra-batch duplicate err = %v", err)
	}
	if _, err := store.GetByID(ctx, "q1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("partial insert leaked: %v", err)
	}
}

func TestQuoteHistoryStoreQueries(t *testing.T) {
	store := NewQuoteHistoryStore()
	ctx := context.Background()

	redeem := quoteFixture("q2", 1000)
	redeem.Operation = domain.OpStablecoinRedeem
	if err := store.InsertBulk(ctx, []*domain.QuoteRecord{
		quoteFixture("q1", 3000),
		redeem,
		quoteFixture("q3", 2000),
	}); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	mints, err := store.GetByOperation(ctx, domain.OpStablecoinMint)
	if err != nil {
		t.Fatalf("GetByOperation: %v", err)
	}
	if len(mints) != 2 || mints[0].QuoteID != "q3" || mints[1].QuoteID != "q1" {
		t.Errorf("mints = %+v", mints)
	}

	ranged, err := store.GetByTimeRange(ctx, 1000, 2000)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(ranged) != 2 || ranged[0].QuoteID != "q2" || ranged[1].QuoteID != "q3" {
		t.Errorf("ranged = %+v", ranged)
	}
}

func TestQuoteHistoryStoreReturnsCopies(t *testing.T) {
	store := NewQuoteHistoryStore()
	ctx := context.Background()

	if err := store.Insert(ctx, quoteFixture("q1", 1000)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got, _ := store.GetByID(ctx, "q1")
	got.OutAmount = 0

	again, _ := store.GetByID(ctx, "q1")
	if again.OutAmount != 990 {
		t.Errorf("stored record mutated through returned copy")
	}
}

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/storage"
)

func testQuoteRecord(quoteID string, ts int64) *domain.QuoteRecord {
	return &domain.QuoteRecord{
		QuoteID:         quoteID,
		TimestampMs:     ts,
		Epoch:           512,
		Operation:       domain.OpStablecoinMint,
		InputMint:       "LSTMint1111111111111111111111111111111111111",
		OutputMint:      "StableMint111111111111111111111111111111111",
		InAmount:        1_000_000_000_000,
		OutAmount:       20_895_000_000,
		FeeAmount:       5_000_000_000,
		FeeMint:         "LSTMint1111111111111111111111111111111111111",
		FeePct:          "0.005",
		StabilityMode:   "decay",
		CollateralRatio: 1.333333333,
	}
}

func TestQuoteHistoryStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	ctx := context.Background()

	want := testQuoteRecord("q1", 1000)
	require.NoError(t, store.Insert(ctx, want))

	got, err := store.GetByID(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestQuoteHistoryStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testQuoteRecord("q1", 1000)))
	err := store.Insert(ctx, testQuoteRecord("q1", 2000))
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestQuoteHistoryStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	_, err := store.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestQuoteHistoryStore_InsertBulkAtomic(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testQuoteRecord("q1", 1000)))

	// Batch containing a duplicate must not leave partial rows behind.
	err := store.InsertBulk(ctx, []*domain.QuoteRecord{
		testQuoteRecord("q2", 2000),
		testQuoteRecord("q1", 3000),
	})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))

	_, err = store.GetByID(ctx, "q2")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestQuoteHistoryStore_GetByOperation(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	ctx := context.Background()

	mint := testQuoteRecord("q1", 2000)
	redeem := testQuoteRecord("q2", 1000)
	redeem.Operation = domain.OpStablecoinRedeem
	mint2 := testQuoteRecord("q3", 1000)
	require.NoError(t, store.InsertBulk(ctx, []*domain.QuoteRecord{mint, redeem, mint2}))

	got, err := store.GetByOperation(ctx, domain.OpStablecoinMint)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q3", got[0].QuoteID) // earlier timestamp first
	assert.Equal(t, "q1", got[1].QuoteID)
}

func TestQuoteHistoryStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.QuoteRecord{
		testQuoteRecord("q1", 1000),
		testQuoteRecord("q2", 2000),
		testQuoteRecord("q3", 3000),
	}))

	got, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].QuoteID)
	assert.Equal(t, "q2", got[1].QuoteID)
}

func TestQuoteHistoryStore_InsertBulkEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewQuoteHistoryStore(pool)
	assert.NoError(t, store.InsertBulk(context.Background(), nil))
}

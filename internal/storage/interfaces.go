package storage

import (
	"context"

	"solana-exchange-core/internal/domain"
)

// QuoteHistoryStore provides access to quote_history storage.
type QuoteHistoryStore interface {
	// Insert adds a new quote. Returns ErrDuplicateKey if quote_id exists.
	Insert(ctx context.Context, q *domain.QuoteRecord) error

	// InsertBulk adds multiple quotes atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, quotes []*domain.QuoteRecord) error

	// GetByID retrieves a quote by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, quoteID string) (*domain.QuoteRecord, error)

	// GetByOperation retrieves all quotes for an operation, ordered by timestamp ASC.
	GetByOperation(ctx context.Context, operation string) ([]*domain.QuoteRecord, error)

	// GetByTimeRange retrieves quotes within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.QuoteRecord, error)
}

// HealthTimeseriesStore provides access to health_timeseries storage.
type HealthTimeseriesStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate timestamp_ms.
	InsertBulk(ctx context.Context, points []*domain.HealthPoint) error

	// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.HealthPoint, error)

	// GetLatest retrieves the most recent point. Returns ErrNotFound when empty.
	GetLatest(ctx context.Context) (*domain.HealthPoint, error)
}

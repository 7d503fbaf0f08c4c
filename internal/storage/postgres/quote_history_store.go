package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/storage"
)

// QuoteHistoryStore implements storage.QuoteHistoryStore using PostgreSQL.
type QuoteHistoryStore struct {
	pool *Pool
}

// NewQuoteHistoryStore creates a new QuoteHistoryStore.
func NewQuoteHistoryStore(pool *Pool) *QuoteHistoryStore {
	return &QuoteHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.QuoteHistoryStore = (*QuoteHistoryStore)(nil)

const quoteColumns = `
	quote_id, timestamp_ms, epoch,
	operation, input_mint, output_mint,
	in_amount, out_amount, fee_amount, fee_mint, fee_pct,
	stability_mode, collateral_ratio
`

const insertQuoteQuery = `
	INSERT INTO quote_history (
		quote_id, timestamp_ms, epoch,
		operation, input_mint, output_mint,
		in_amount, out_amount, fee_amount, fee_mint, fee_pct,
		stability_mode, collateral_ratio
	) VALUES (
		$1, $2, $3,
		$4, $5, $6,
		$7, $8, $9, $10, $11,
		$12, $13
	)
`

// Insert adds a new quote. Returns ErrDuplicateKey if quote_id exists.
func (s *QuoteHistoryStore) Insert(ctx context.Context, q *domain.QuoteRecord) error {
	_, err := s.pool.Exec(ctx, insertQuoteQuery,
		q.QuoteID, q.TimestampMs, q.Epoch,
		q.Operation, q.InputMint, q.OutputMint,
		q.InAmount, q.OutAmount, q.FeeAmount, q.FeeMint, q.FeePct,
		q.StabilityMode, q.CollateralRatio,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert quote record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple quotes atomically. Fails entire batch on any duplicate.
func (s *QuoteHistoryStore) InsertBulk(ctx context.Context, quotes []*domain.QuoteRecord) error {
	if len(quotes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, q := range quotes {
		_, err := tx.Exec(ctx, insertQuoteQuery,
			q.QuoteID, q.TimestampMs, q.Epoch,
			q.Operation, q.InputMint, q.OutputMint,
			q.InAmount, q.OutAmount, q.FeeAmount, q.FeeMint, q.FeePct,
			q.StabilityMode, q.CollateralRatio,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert quote record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a quote by its ID. Returns ErrNotFound if not exists.
func (s *QuoteHistoryStore) GetByID(ctx context.Context, quoteID string) (*domain.QuoteRecord, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM quote_history
		WHERE quote_id = $1
	`

	row := s.pool.QueryRow(ctx, query, quoteID)
	q, err := scanQuoteRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get quote record by id: %w", err)
	}
	return q, nil
}

// GetByOperation retrieves all quotes for an operation, ordered by timestamp ASC.
func (s *QuoteHistoryStore) GetByOperation(ctx context.Context, operation string) ([]*domain.QuoteRecord, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM quote_history
		WHERE operation = $1
		ORDER BY timestamp_ms ASC, quote_id ASC
	`

	rows, err := s.pool.Query(ctx, query, operation)
	if err != nil {
		return nil, fmt.Errorf("get quote records by operation: %w", err)
	}
	defer rows.Close()

	return scanQuoteRecords(rows)
}

// GetByTimeRange retrieves quotes within [start, end] (inclusive), ordered by timestamp ASC.
func (s *QuoteHistoryStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.QuoteRecord, error) {
	query := `
		SELECT ` + quoteColumns + `
		FROM quote_history
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, quote_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get quote records by time range: %w", err)
	}
	defer rows.Close()

	return scanQuoteRecords(rows)
}

// scanQuoteRecord scans a single row into a QuoteRecord.
func scanQuoteRecord(row pgx.Row) (*domain.QuoteRecord, error) {
	var q domain.QuoteRecord

	err := row.Scan(
		&q.QuoteID, &q.TimestampMs, &q.Epoch,
		&q.Operation, &q.InputMint, &q.OutputMint,
		&q.InAmount, &q.OutAmount, &q.FeeAmount, &q.FeeMint, &q.FeePct,
		&q.StabilityMode, &q.CollateralRatio,
	)
	if err != nil {
		return nil, err
	}

	return &q, nil
}

// scanQuoteRecords scans multiple rows into a slice of QuoteRecord.
func scanQuoteRecords(rows pgx.Rows) ([]*domain.QuoteRecord, error) {
	var quotes []*domain.QuoteRecord

	for rows.Next() {
		q, err := scanQuoteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quote record row: %w", err)
		}
		quotes = append(quotes, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote record rows: %w", err)
	}

	return quotes, nil
}

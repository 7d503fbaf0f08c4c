// Package memory provides in-memory store implementations for tests and
// offline simulation runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/storage"
)

// QuoteHistoryStore is an in-memory implementation of storage.QuoteHistoryStore.
type QuoteHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.QuoteRecord // keyed by quote_id
}

// NewQuoteHistoryStore creates a new in-memory quote history store.
func NewQuoteHistoryStore() *QuoteHistoryStore {
	return &QuoteHistoryStore{
		data: make(map[string]*domain.QuoteRecord),
	}
}

var _ storage.QuoteHistoryStore = (*QuoteHistoryStore)(nil)

// Insert adds a new quote. Returns ErrDuplicateKey if quote_id exists.
func (s *QuoteHistoryStore) Insert(_ context.Context, q *domain.QuoteRecord) error {
	if q == nil || q.QuoteID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[q.QuoteID]; exists {
		return storage.ErrDuplicateKey
	}
	clone := *q
	s.data[q.QuoteID] = &clone
	return nil
}

// InsertBulk adds multiple quotes atomically. Fails entire batch on any duplicate.
func (s *QuoteHistoryStore) InsertBulk(_ context.Context, quotes []*domain.QuoteRecord) error {
	if len(quotes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[string]struct{}, len(quotes))
	for _, q := range quotes {
		if q == nil || q.QuoteID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[q.QuoteID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[q.QuoteID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[q.QuoteID] = struct{}{}
	}

	// Second pass: insert all
	for _, q := range quotes {
		clone := *q
		s.data[q.QuoteID] = &clone
	}
	return nil
}

// GetByID retrieves a quote by its ID. Returns ErrNotFound if not exists.
func (s *QuoteHistoryStore) GetByID(_ context.Context, quoteID string) (*domain.QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, exists := s.data[quoteID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	clone := *q
	return &clone, nil
}

// GetByOperation retrieves all quotes for an operation, ordered by timestamp ASC.
func (s *QuoteHistoryStore) GetByOperation(_ context.Context, operation string) ([]*domain.QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.QuoteRecord
	for _, q := range s.data {
		if q.Operation == operation {
			clone := *q
			result = append(result, &clone)
		}
	}
	sortQuotes(result)
	return result, nil
}

// GetByTimeRange retrieves quotes within [start, end] (inclusive), ordered by timestamp ASC.
func (s *QuoteHistoryStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.QuoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.QuoteRecord
	for _, q := range s.data {
		if q.TimestampMs >= start && q.TimestampMs <= end {
			clone := *q
			result = append(result, &clone)
		}
	}
	sortQuotes(result)
	return result, nil
}

func sortQuotes(quotes []*domain.QuoteRecord) {
	sort.Slice(quotes, func(i, j int) bool {
		if quotes[i].TimestampMs != quotes[j].TimestampMs {
			return quotes[i].TimestampMs < quotes[j].TimestampMs
		}
		return quotes[i].QuoteID < quotes[j].QuoteID
	})
}

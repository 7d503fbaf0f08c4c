package memory

import (
	"context"
	"sort"
	"sync"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/storage"
)

// HealthTimeseriesStore is an in-memory implementation of storage.HealthTimeseriesStore.
type HealthTimeseriesStore struct {
	mu   sync.RWMutex
	data map[int64]*domain.HealthPoint // keyed by timestamp_ms
}

// NewHealthTimeseriesStore creates a new in-memory health timeseries store.
func NewHealthTimeseriesStore() *HealthTimeseriesStore {
	return &HealthTimeseriesStore{
		data: make(map[int64]*domain.HealthPoint),
	}
}

var _ storage.HealthTimeseriesStore = (*HealthTimeseriesStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate timestamp_ms.
func (s *HealthTimeseriesStore) InsertBulk(_ context.Context, points []*domain.HealthPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.TimestampMs] = struct{}{}
	}

	for _, p := range points {
		clone := *p
		if p.LevercoinSupply != nil {
			supply := *p.LevercoinSupply
			clone.LevercoinSupply = &supply
		}
		s.data[p.TimestampMs] = &clone
	}
	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
func (s *HealthTimeseriesStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.HealthPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HealthPoint
	for _, p := range s.data {
		if p.TimestampMs >= start && p.TimestampMs <= end {
			clone := *p
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})
	return result, nil
}

// GetLatest retrieves the most recent point. Returns ErrNotFound when empty.
func (s *HealthTimeseriesStore) GetLatest(_ context.Context) (*domain.HealthPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.HealthPoint
	for _, p := range s.data {
		if latest == nil || p.TimestampMs > latest.TimestampMs {
			latest = p
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	clone := *latest
	return &clone, nil
}

package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"solana-exchange-core/internal/domain"
	"solana-exchange-core/internal/storage"
)

// HealthTimeseriesStore implements storage.HealthTimeseriesStore using ClickHouse.
type HealthTimeseriesStore struct {
	conn *Conn
}

// NewHealthTimeseriesStore creates a new HealthTimeseriesStore.
func NewHealthTimeseriesStore(conn *Conn) *HealthTimeseriesStore {
	return &HealthTimeseriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HealthTimeseriesStore = (*HealthTimeseriesStore)(nil)

const healthColumns = `
	timestamp_ms, epoch,
	collateral_ratio, tvl_usd, sol_price_lower, sol_price_upper,
	stablecoin_supply, levercoin_supply,
	stablecoin_nav, levercoin_mint_nav, levercoin_redeem_nav,
	stability_mode
`

// InsertBulk adds multiple points. Fails entire batch on duplicate timestamp_ms.
func (s *HealthTimeseriesStore) InsertBulk(ctx context.Context, points []*domain.HealthPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(points))
	for _, p := range points {
		if _, exists := seen[p.TimestampMs]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.TimestampMs] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO health_timeseries (
			timestamp_ms, epoch,
			collateral_ratio, tvl_usd, sol_price_lower, sol_price_upper,
			stablecoin_supply, levercoin_supply,
			stablecoin_nav, levercoin_mint_nav, levercoin_redeem_nav,
			stability_mode
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			uint64(p.TimestampMs), uint64(p.Epoch),
			p.CollateralRatio, p.TVLUSD, p.SOLPriceLower, p.SOLPriceUpper,
			p.StablecoinSupply, p.LevercoinSupply,
			p.StablecoinNAV, p.LevercoinMintNAV, p.LevercoinRedeemNAV,
			p.StabilityMode,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive), ordered by timestamp ASC.
func (s *HealthTimeseriesStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.HealthPoint, error) {
	query := `
		SELECT ` + healthColumns + `
		FROM health_timeseries
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanHealthPoints(rows)
}

// GetLatest retrieves the most recent point. Returns ErrNotFound when empty.
func (s *HealthTimeseriesStore) GetLatest(ctx context.Context) (*domain.HealthPoint, error) {
	query := `
		SELECT ` + healthColumns + `
		FROM health_timeseries
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	points, err := scanHealthPoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[0], nil
}

// exists checks if a point with the given timestamp exists.
func (s *HealthTimeseriesStore) exists(ctx context.Context, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM health_timeseries
		WHERE timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanHealthPoints scans multiple rows.
func scanHealthPoints(rows driver.Rows) ([]*domain.HealthPoint, error) {
	var points []*domain.HealthPoint

	for rows.Next() {
		var p domain.HealthPoint
		var timestampMs, epoch uint64

		err := rows.Scan(
			&timestampMs, &epoch,
			&p.CollateralRatio, &p.TVLUSD, &p.SOLPriceLower, &p.SOLPriceUpper,
			&p.StablecoinSupply, &p.LevercoinSupply,
			&p.StablecoinNAV, &p.LevercoinMintNAV, &p.LevercoinRedeemNAV,
			&p.StabilityMode,
		)
		if err != nil {
			return nil, fmt.Errorf("scan health point row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		p.Epoch = int64(epoch)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health point rows: %w", err)
	}

	return points, nil
}

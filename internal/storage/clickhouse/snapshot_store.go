package clickhouse

import (
	"context"
	"fmt"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
// MergeTree does not enforce uniqueness at insert time, so duplicates
// are detected with explicit checks before writing.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a snapshot. Returns ErrDuplicateKey if (asset_address, timestamp_ms) exists.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.MetricSnapshot) error {
	if snap == nil || snap.AssetAddress == "" || snap.TimestampMs <= 0 {
		return storage.ErrInvalidInput
	}
	return s.InsertBulk(ctx, []*domain.MetricSnapshot{snap})
}

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.MetricSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		assetAddress string
		timestampMs  int64
	}
	seen := make(map[key]struct{})
	for _, snap := range snapshots {
		if snap == nil || snap.AssetAddress == "" || snap.TimestampMs <= 0 {
			return storage.ErrInvalidInput
		}
		k := key{snap.AssetAddress, snap.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.AssetAddress, snap.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_snapshots (
			asset_address, timestamp_ms,
			price, market_cap, liquidity, holder_count,
			volume_5m, volume_1h,
			buys_5m, sells_5m, buys_20m, sells_20m, unique_buyers_20m,
			top10_ratio, smart_wallet_count, instability_index
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.AssetAddress, uint64(snap.TimestampMs),
			snap.Price, snap.MarketCap, snap.Liquidity, uint32(snap.HolderCount),
			snap.Volume5m, snap.Volume1h,
			uint32(snap.Buys5m), uint32(snap.Sells5m), uint32(snap.Buys20m), uint32(snap.Sells20m), uint32(snap.UniqueBuyers20m),
			snap.Top10Ratio, uint32(snap.SmartWalletCount), snap.InstabilityIndex,
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

// GetRecent retrieves snapshots for an asset with timestamp_ms >= sinceMs, ordered ASC.
func (s *SnapshotStore) GetRecent(ctx context.Context, assetAddress string, sinceMs int64) ([]*domain.MetricSnapshot, error) {
	query := `
		SELECT asset_address, timestamp_ms,
		       price, market_cap, liquidity, holder_count,
		       volume_5m, volume_1h,
		       buys_5m, sells_5m, buys_20m, sells_20m, unique_buyers_20m,
		       top10_ratio, smart_wallet_count, instability_index
		FROM metric_snapshots
		WHERE asset_address = ? AND timestamp_ms >= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetAddress, uint64(sinceMs))
	if err != nil {
		return nil, fmt.Errorf("query recent snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetLatest retrieves the newest snapshot for an asset. Returns ErrNotFound if none.
func (s *SnapshotStore) GetLatest(ctx context.Context, assetAddress string) (*domain.MetricSnapshot, error) {
	query := `
		SELECT asset_address, timestamp_ms,
		       price, market_cap, liquidity, holder_count,
		       volume_5m, volume_1h,
		       buys_5m, sells_5m, buys_20m, sells_20m, unique_buyers_20m,
		       top10_ratio, smart_wallet_count, instability_index
		FROM metric_snapshots
		WHERE asset_address = ?
		ORDER BY timestamp_ms DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, assetAddress)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	defer rows.Close()

	snapshots, err := scanSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, storage.ErrNotFound
	}
	return snapshots[0], nil
}

// exists checks if a snapshot with the given key exists.
func (s *SnapshotStore) exists(ctx context.Context, assetAddress string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM metric_snapshots
		WHERE asset_address = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, assetAddress, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.MetricSnapshot, error) {
	var snapshots []*domain.MetricSnapshot

	for rows.Next() {
		var snap domain.MetricSnapshot
		var timestampMs uint64
		var holderCount, buys5m, sells5m, buys20m, sells20m, uniqueBuyers20m, smartWalletCount uint32

		err := rows.Scan(
			&snap.AssetAddress, &timestampMs,
			&snap.Price, &snap.MarketCap, &snap.Liquidity, &holderCount,
			&snap.Volume5m, &snap.Volume1h,
			&buys5m, &sells5m, &buys20m, &sells20m, &uniqueBuyers20m,
			&snap.Top10Ratio, &smartWalletCount, &snap.InstabilityIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		snap.TimestampMs = int64(timestampMs)
		snap.HolderCount = int64(holderCount)
		snap.Buys5m = int64(buys5m)
		snap.Sells5m = int64(sells5m)
		snap.Buys20m = int64(buys20m)
		snap.Sells20m = int64(sells20m)
		snap.UniqueBuyers20m = int64(uniqueBuyers20m)
		snap.SmartWalletCount = int64(smartWalletCount)
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// AssetStore implements storage.AssetStore using PostgreSQL.
type AssetStore struct {
	pool *Pool
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(pool *Pool) *AssetStore {
	return &AssetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AssetStore = (*AssetStore)(nil)

// Upsert inserts a new asset or refreshes an existing one. The first
// sighting timestamps never move on refresh.
func (s *AssetStore) Upsert(ctx context.Context, a *domain.Asset) error {
	query := `
		INSERT INTO assets (address, name, symbol, first_seen_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE
		SET name = EXCLUDED.name,
		    symbol = EXCLUDED.symbol
	`

	_, err := s.pool.Exec(ctx, query, a.Address, a.Name, a.Symbol, a.FirstSeenAt, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert asset: %w", err)
	}
	return nil
}

// GetByAddress retrieves an asset by address. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByAddress(ctx context.Context, address string) (*domain.Asset, error) {
	query := `
		SELECT address, name, symbol, first_seen_at, created_at
		FROM assets
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, address)
	a, err := scanAsset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asset by address: %w", err)
	}
	return a, nil
}

// List retrieves all tracked assets ordered by first_seen_at ASC.
func (s *AssetStore) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT address, name, symbol, first_seen_at, created_at
		FROM assets
		ORDER BY first_seen_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

// ListActive retrieves assets first seen at or after sinceMs, ordered
// by first_seen_at ASC.
func (s *AssetStore) ListActive(ctx context.Context, sinceMs int64) ([]*domain.Asset, error) {
	query := `
		SELECT address, name, symbol, first_seen_at, created_at
		FROM assets
		WHERE first_seen_at >= $1
		ORDER BY first_seen_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("list active assets: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

func collectAssets(rows pgx.Rows) ([]*domain.Asset, error) {
	var assets []*domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.Address, &a.Name, &a.Symbol, &a.FirstSeenAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset row: %w", err)
		}
		assets = append(assets, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}

// scanAsset scans a single row into an Asset.
func scanAsset(row pgx.Row) (*domain.Asset, error) {
	var a domain.Asset
	if err := row.Scan(&a.Address, &a.Name, &a.Symbol, &a.FirstSeenAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

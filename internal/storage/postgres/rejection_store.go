package postgres

import (
	"context"
	"fmt"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// RejectionStore implements storage.RejectionStore using PostgreSQL.
type RejectionStore struct {
	pool *Pool
}

// NewRejectionStore creates a new RejectionStore.
func NewRejectionStore(pool *Pool) *RejectionStore {
	return &RejectionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RejectionStore = (*RejectionStore)(nil)

// Insert adds a rejection. Returns ErrDuplicateKey if rejection_id exists.
func (s *RejectionStore) Insert(ctx context.Context, r *domain.Rejection) error {
	query := `
		INSERT INTO rejections (
			rejection_id, asset_address, snapshot_ms,
			instability_index, threshold, reasons, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RejectionID, r.AssetAddress, r.SnapshotMs,
		r.InstabilityIndex, r.Threshold, r.Reasons, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rejection: %w", err)
	}
	return nil
}

// ListSince retrieves rejections with snapshot_ms >= sinceMs ordered by snapshot_ms ASC.
func (s *RejectionStore) ListSince(ctx context.Context, sinceMs int64) ([]*domain.Rejection, error) {
	query := `
		SELECT rejection_id, asset_address, snapshot_ms,
		       instability_index, threshold, reasons, created_at
		FROM rejections
		WHERE snapshot_ms >= $1
		ORDER BY snapshot_ms ASC, rejection_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("list rejections since: %w", err)
	}
	defer rows.Close()

	var rejections []*domain.Rejection
	for rows.Next() {
		var r domain.Rejection
		err := rows.Scan(
			&r.RejectionID, &r.AssetAddress, &r.SnapshotMs,
			&r.InstabilityIndex, &r.Threshold, &r.Reasons, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rejection row: %w", err)
		}
		rejections = append(rejections, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejection rows: %w", err)
	}

	return rejections, nil
}

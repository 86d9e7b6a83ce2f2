package storage

import (
	"context"

	"solana-prepump-engine/internal/domain"
)

// AssetStore provides access to the tracked asset universe.
type AssetStore interface {
	// Upsert inserts a new asset or refreshes an existing one.
	Upsert(ctx context.Context, a *domain.Asset) error

	// GetByAddress retrieves an asset by address. Returns ErrNotFound if not exists.
	GetByAddress(ctx context.Context, address string) (*domain.Asset, error)

	// List retrieves all tracked assets ordered by first_seen_at ASC.
	List(ctx context.Context) ([]*domain.Asset, error)

	// ListActive retrieves assets first seen at or after sinceMs,
	// ordered by first_seen_at ASC.
	ListActive(ctx context.Context, sinceMs int64) ([]*domain.Asset, error)
}

// SnapshotStore provides access to metric_snapshots storage. Snapshots
// are append-only.
type SnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (asset_address, timestamp_ms) exists.
	Insert(ctx context.Context, s *domain.MetricSnapshot) error

	// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, snapshots []*domain.MetricSnapshot) error

	// GetRecent retrieves snapshots for an asset with timestamp_ms >= sinceMs, ordered ASC.
	GetRecent(ctx context.Context, assetAddress string, sinceMs int64) ([]*domain.MetricSnapshot, error)

	// GetLatest retrieves the newest snapshot for an asset. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, assetAddress string) (*domain.MetricSnapshot, error)
}

// SignalStore provides access to signals storage. Signals are
// append-only.
type SignalStore interface {
	// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
	Insert(ctx context.Context, sig *domain.Signal) error

	// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, signalID string) (*domain.Signal, error)

	// GetByAsset retrieves all signals for an asset ordered by snapshot_ms ASC.
	GetByAsset(ctx context.Context, assetAddress string) ([]*domain.Signal, error)

	// HasRecent reports whether the asset has any signal with snapshot_ms >= sinceMs.
	HasRecent(ctx context.Context, assetAddress string, sinceMs int64) (bool, error)

	// ListSince retrieves all signals with snapshot_ms >= sinceMs ordered by snapshot_ms ASC.
	ListSince(ctx context.Context, sinceMs int64) ([]*domain.Signal, error)
}

// RejectionStore provides access to rejections storage, the audit
// trail of candidates dropped by the safety filter.
type RejectionStore interface {
	// Insert adds a rejection. Returns ErrDuplicateKey if rejection_id exists.
	Insert(ctx context.Context, r *domain.Rejection) error

	// ListSince retrieves rejections with snapshot_ms >= sinceMs ordered by snapshot_ms ASC.
	ListSince(ctx context.Context, sinceMs int64) ([]*domain.Rejection, error)
}

// PositionStore provides access to positions storage. It enforces the
// invariant that an asset has at most one OPEN position.
type PositionStore interface {
	// Insert adds a position. Returns ErrDuplicateKey if position_id
	// exists or the asset already has an OPEN position.
	Insert(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpenByAsset retrieves the OPEN position for an asset. Returns ErrNotFound if none.
	GetOpenByAsset(ctx context.Context, assetAddress string) (*domain.Position, error)

	// ListOpen retrieves all OPEN positions ordered by opened_at ASC.
	ListOpen(ctx context.Context) ([]*domain.Position, error)

	// ListClosedSince retrieves terminal positions closed at or after sinceMs, ordered by closed_at ASC.
	ListClosedSince(ctx context.Context, sinceMs int64) ([]*domain.Position, error)

	// UpdateROI stores the latest observed ROI for an OPEN position.
	UpdateROI(ctx context.Context, positionID string, roi float64) error

	// RequestClose flags an OPEN position for manual close on the next
	// monitor pass. Returns ErrInvalidInput if the position is not OPEN.
	RequestClose(ctx context.Context, positionID string) error

	// Close transitions an OPEN position to a terminal status with its
	// exit details. Returns ErrInvalidInput if the position is not OPEN
	// or the status is not terminal.
	Close(ctx context.Context, positionID string, status domain.PositionStatus, exitPrice float64, exitTxRef string, closedAtMs int64) error
}

// WalletScoreStore provides access to wallet_scores storage.
type WalletScoreStore interface {
	// Upsert inserts or replaces the score for a wallet.
	Upsert(ctx context.Context, w *domain.WalletScore) error

	// GetByWallet retrieves the score for a wallet. Returns ErrNotFound if not exists.
	GetByWallet(ctx context.Context, wallet string) (*domain.WalletScore, error)

	// ListQualified retrieves wallets meeting the criteria, ordered by realized_roi DESC.
	ListQualified(ctx context.Context, criteria domain.SmartWalletCriteria) ([]*domain.WalletScore, error)
}

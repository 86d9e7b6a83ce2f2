package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
// The one-OPEN-per-asset invariant is backed by a partial unique index
// on (asset_address) WHERE status = 'OPEN', so concurrent openers race
// on the database rather than on application state.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, asset_address, signal_id, status,
	entry_price, exit_price, size, current_roi,
	take_profit_pct, stop_loss_pct,
	entry_tx_ref, exit_tx_ref,
	close_requested, failure_reason,
	opened_at, closed_at
`

// Insert adds a position. Returns ErrDuplicateKey if position_id
// exists or the asset already has an OPEN position.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10,
			$11, $12,
			$13, $14,
			$15, $16
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.PositionID, p.AssetAddress, p.SignalID, p.Status.String(),
		p.EntryPrice, p.ExitPrice, p.Size, p.CurrentROI,
		p.TakeProfitPct, p.StopLossPct,
		p.EntryTxRef, p.ExitTxRef,
		p.CloseRequested, p.FailureReason,
		p.OpenedAt, p.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	row := s.pool.QueryRow(ctx, query, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	return p, nil
}

// GetOpenByAsset retrieves the OPEN position for an asset. Returns ErrNotFound if none.
func (s *PositionStore) GetOpenByAsset(ctx context.Context, assetAddress string) (*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE asset_address = $1 AND status = 'OPEN'
	`

	row := s.pool.QueryRow(ctx, query, assetAddress)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get open position by asset: %w", err)
	}
	return p, nil
}

// ListOpen retrieves all OPEN positions ordered by opened_at ASC.
func (s *PositionStore) ListOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status = 'OPEN'
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// ListClosedSince retrieves terminal positions closed at or after sinceMs, ordered by closed_at ASC.
func (s *PositionStore) ListClosedSince(ctx context.Context, sinceMs int64) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status <> 'OPEN' AND closed_at IS NOT NULL AND closed_at >= $1
		ORDER BY closed_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("list closed positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// UpdateROI stores the latest observed ROI for an OPEN position.
func (s *PositionStore) UpdateROI(ctx context.Context, positionID string, roi float64) error {
	query := `
		UPDATE positions
		SET current_roi = $2
		WHERE position_id = $1 AND status = 'OPEN'
	`

	tag, err := s.pool.Exec(ctx, query, positionID, roi)
	if err != nil {
		return fmt.Errorf("update position roi: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrNotOpen(ctx, positionID)
	}
	return nil
}

// RequestClose flags an OPEN position for manual close on the next
// monitor pass. Returns ErrInvalidInput if the position is not OPEN.
func (s *PositionStore) RequestClose(ctx context.Context, positionID string) error {
	query := `
		UPDATE positions
		SET close_requested = TRUE
		WHERE position_id = $1 AND status = 'OPEN'
	`

	tag, err := s.pool.Exec(ctx, query, positionID)
	if err != nil {
		return fmt.Errorf("request position close: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrNotOpen(ctx, positionID)
	}
	return nil
}

// Close transitions an OPEN position to a terminal status. The final
// ROI is recomputed from the exit price so closed positions always
// carry their realized outcome.
func (s *PositionStore) Close(ctx context.Context, positionID string, status domain.PositionStatus, exitPrice float64, exitTxRef string, closedAtMs int64) error {
	if !status.IsTerminal() || closedAtMs <= 0 {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE positions
		SET status = $2,
		    exit_price = $3,
		    exit_tx_ref = $4,
		    closed_at = $5,
		    current_roi = CASE WHEN entry_price > 0
		                       THEN ($3 - entry_price) / entry_price * 100
		                       ELSE 0 END
		WHERE position_id = $1 AND status = 'OPEN'
	`

	tag, err := s.pool.Exec(ctx, query, positionID, status.String(), exitPrice, exitTxRef, closedAtMs)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOrNotOpen(ctx, positionID)
	}
	return nil
}

// missingOrNotOpen resolves a zero-row update into the precise error:
// the position does not exist, or it exists but is not OPEN.
func (s *PositionStore) missingOrNotOpen(ctx context.Context, positionID string) error {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM positions WHERE position_id = $1)`, positionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check position exists: %w", err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrInvalidInput
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var status string

	err := row.Scan(
		&p.PositionID, &p.AssetAddress, &p.SignalID, &status,
		&p.EntryPrice, &p.ExitPrice, &p.Size, &p.CurrentROI,
		&p.TakeProfitPct, &p.StopLossPct,
		&p.EntryTxRef, &p.ExitTxRef,
		&p.CloseRequested, &p.FailureReason,
		&p.OpenedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.PositionStatus(status)
	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		var p domain.Position
		var status string

		err := rows.Scan(
			&p.PositionID, &p.AssetAddress, &p.SignalID, &status,
			&p.EntryPrice, &p.ExitPrice, &p.Size, &p.CurrentROI,
			&p.TakeProfitPct, &p.StopLossPct,
			&p.EntryTxRef, &p.ExitTxRef,
			&p.CloseRequested, &p.FailureReason,
			&p.OpenedAt, &p.ClosedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}

		p.Status = domain.PositionStatus(status)
		positions = append(positions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}

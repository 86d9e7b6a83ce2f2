package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const signalColumns = `
	signal_id, asset_address, snapshot_ms,
	instability_index, threshold, regime,
	price, liquidity, market_cap,
	win_probability, kelly_fraction, position_size, value_at_risk, max_drawdown,
	verdict, verdict_reason, created_at
`

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(ctx context.Context, sig *domain.Signal) error {
	query := `
		INSERT INTO signals (` + signalColumns + `)
		VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13, $14,
			$15, $16, $17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.SignalID, sig.AssetAddress, sig.SnapshotMs,
		sig.InstabilityIndex, sig.Threshold, sig.Regime.String(),
		sig.Price, sig.Liquidity, sig.MarketCap,
		sig.WinProbability, sig.KellyFraction, sig.PositionSize, sig.ValueAtRisk, sig.MaxDrawdown,
		sig.Verdict.String(), sig.VerdictReason, sig.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `SELECT ` + signalColumns + ` FROM signals WHERE signal_id = $1`

	row := s.pool.QueryRow(ctx, query, signalID)
	sig, err := scanSignal(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get signal by id: %w", err)
	}
	return sig, nil
}

// GetByAsset retrieves all signals for an asset ordered by snapshot_ms ASC.
func (s *SignalStore) GetByAsset(ctx context.Context, assetAddress string) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE asset_address = $1
		ORDER BY snapshot_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, assetAddress)
	if err != nil {
		return nil, fmt.Errorf("get signals by asset: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// HasRecent reports whether the asset has any signal with snapshot_ms >= sinceMs.
func (s *SignalStore) HasRecent(ctx context.Context, assetAddress string, sinceMs int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM signals
			WHERE asset_address = $1 AND snapshot_ms >= $2
		)
	`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, assetAddress, sinceMs).Scan(&exists); err != nil {
		return false, fmt.Errorf("check recent signal: %w", err)
	}
	return exists, nil
}

// ListSince retrieves all signals with snapshot_ms >= sinceMs ordered by snapshot_ms ASC.
func (s *SignalStore) ListSince(ctx context.Context, sinceMs int64) ([]*domain.Signal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE snapshot_ms >= $1
		ORDER BY snapshot_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("list signals since: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// scanSignal scans a single row into a Signal.
func scanSignal(row pgx.Row) (*domain.Signal, error) {
	var sig domain.Signal
	var regime, verdict string

	err := row.Scan(
		&sig.SignalID, &sig.AssetAddress, &sig.SnapshotMs,
		&sig.InstabilityIndex, &sig.Threshold, &regime,
		&sig.Price, &sig.Liquidity, &sig.MarketCap,
		&sig.WinProbability, &sig.KellyFraction, &sig.PositionSize, &sig.ValueAtRisk, &sig.MaxDrawdown,
		&verdict, &sig.VerdictReason, &sig.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	sig.Regime = domain.Regime(regime)
	sig.Verdict = domain.Verdict(verdict)
	return &sig, nil
}

// scanSignals scans multiple rows into a slice of Signal.
func scanSignals(rows pgx.Rows) ([]*domain.Signal, error) {
	var signals []*domain.Signal

	for rows.Next() {
		var sig domain.Signal
		var regime, verdict string

		err := rows.Scan(
			&sig.SignalID, &sig.AssetAddress, &sig.SnapshotMs,
			&sig.InstabilityIndex, &sig.Threshold, &regime,
			&sig.Price, &sig.Liquidity, &sig.MarketCap,
			&sig.WinProbability, &sig.KellyFraction, &sig.PositionSize, &sig.ValueAtRisk, &sig.MaxDrawdown,
			&verdict, &sig.VerdictReason, &sig.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}

		sig.Regime = domain.Regime(regime)
		sig.Verdict = domain.Verdict(verdict)
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}

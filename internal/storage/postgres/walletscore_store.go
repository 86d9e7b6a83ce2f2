package postgres

import (
	"context"
	"fmt"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// WalletScoreStore implements storage.WalletScoreStore using PostgreSQL.
type WalletScoreStore struct {
	pool *Pool
}

// NewWalletScoreStore creates a new WalletScoreStore.
func NewWalletScoreStore(pool *Pool) *WalletScoreStore {
	return &WalletScoreStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletScoreStore = (*WalletScoreStore)(nil)

// Upsert inserts or replaces the score for a wallet.
func (s *WalletScoreStore) Upsert(ctx context.Context, w *domain.WalletScore) error {
	query := `
		INSERT INTO wallet_scores (
			wallet, total_trades, win_rate, realized_roi, last_active_ms, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (wallet) DO UPDATE
		SET total_trades = EXCLUDED.total_trades,
		    win_rate = EXCLUDED.win_rate,
		    realized_roi = EXCLUDED.realized_roi,
		    last_active_ms = EXCLUDED.last_active_ms,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		w.Wallet, w.TotalTrades, w.WinRate, w.RealizedROI, w.LastActiveMs, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert wallet score: %w", err)
	}
	return nil
}

// GetByWallet retrieves the score for a wallet. Returns ErrNotFound if not exists.
func (s *WalletScoreStore) GetByWallet(ctx context.Context, wallet string) (*domain.WalletScore, error) {
	query := `
		SELECT wallet, total_trades, win_rate, realized_roi, last_active_ms, updated_at
		FROM wallet_scores
		WHERE wallet = $1
	`

	var w domain.WalletScore
	err := s.pool.QueryRow(ctx, query, wallet).Scan(
		&w.Wallet, &w.TotalTrades, &w.WinRate, &w.RealizedROI, &w.LastActiveMs, &w.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get wallet score: %w", err)
	}
	return &w, nil
}

// ListQualified retrieves wallets meeting the criteria, ordered by realized_roi DESC.
func (s *WalletScoreStore) ListQualified(ctx context.Context, criteria domain.SmartWalletCriteria) ([]*domain.WalletScore, error) {
	query := `
		SELECT wallet, total_trades, win_rate, realized_roi, last_active_ms, updated_at
		FROM wallet_scores
		WHERE realized_roi >= $1 AND total_trades >= $2 AND win_rate >= $3
		ORDER BY realized_roi DESC, wallet ASC
	`

	rows, err := s.pool.Query(ctx, query, criteria.MinROI, criteria.MinTrades, criteria.MinWinRate)
	if err != nil {
		return nil, fmt.Errorf("list qualified wallets: %w", err)
	}
	defer rows.Close()

	var scores []*domain.WalletScore
	for rows.Next() {
		var w domain.WalletScore
		err := rows.Scan(&w.Wallet, &w.TotalTrades, &w.WinRate, &w.RealizedROI, &w.LastActiveMs, &w.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan wallet score row: %w", err)
		}
		scores = append(scores, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet score rows: %w", err)
	}

	return scores, nil
}

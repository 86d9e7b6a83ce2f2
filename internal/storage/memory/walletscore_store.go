package memory

import (
	"context"
	"sort"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// WalletScoreStore is an in-memory implementation of storage.WalletScoreStore.
type WalletScoreStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WalletScore // keyed by wallet address
}

// NewWalletScoreStore creates a new in-memory wallet score store.
func NewWalletScoreStore() *WalletScoreStore {
	return &WalletScoreStore{
		data: make(map[string]*domain.WalletScore),
	}
}

// Upsert inserts or replaces the score for a wallet.
func (s *WalletScoreStore) Upsert(_ context.Context, w *domain.WalletScore) error {
	if w == nil || w.Wallet == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scoreCopy := *w
	s.data[w.Wallet] = &scoreCopy
	return nil
}

// GetByWallet retrieves the score for a wallet. Returns ErrNotFound if not exists.
func (s *WalletScoreStore) GetByWallet(_ context.Context, wallet string) (*domain.WalletScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}

	scoreCopy := *w
	return &scoreCopy, nil
}

// ListQualified retrieves wallets meeting the criteria, ordered by realized_roi DESC.
func (s *WalletScoreStore) ListQualified(_ context.Context, criteria domain.SmartWalletCriteria) ([]*domain.WalletScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WalletScore
	for _, w := range s.data {
		if criteria.Qualifies(w) {
			scoreCopy := *w
			result = append(result, &scoreCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RealizedROI == result[j].RealizedROI {
			return result[i].Wallet < result[j].Wallet
		}
		return result[i].RealizedROI > result[j].RealizedROI
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.WalletScoreStore = (*WalletScoreStore)(nil)

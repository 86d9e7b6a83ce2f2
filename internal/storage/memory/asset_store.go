package memory

import (
	"context"
	"sort"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// AssetStore is an in-memory implementation of storage.AssetStore.
type AssetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asset // keyed by address
}

// NewAssetStore creates a new in-memory asset store.
func NewAssetStore() *AssetStore {
	return &AssetStore{
		data: make(map[string]*domain.Asset),
	}
}

// Upsert inserts a new asset or refreshes an existing one.
func (s *AssetStore) Upsert(_ context.Context, a *domain.Asset) error {
	if a == nil || a.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	assetCopy := *a
	if existing, ok := s.data[a.Address]; ok {
		assetCopy.FirstSeenAt = existing.FirstSeenAt
		assetCopy.CreatedAt = existing.CreatedAt
	}
	s.data[a.Address] = &assetCopy
	return nil
}

// GetByAddress retrieves an asset by address. Returns ErrNotFound if not exists.
func (s *AssetStore) GetByAddress(_ context.Context, address string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[address]
	if !exists {
		return nil, storage.ErrNotFound
	}

	assetCopy := *a
	return &assetCopy, nil
}

// List retrieves all tracked assets ordered by first_seen_at ASC.
func (s *AssetStore) List(_ context.Context) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Asset, 0, len(s.data))
	for _, a := range s.data {
		assetCopy := *a
		result = append(result, &assetCopy)
	}

	sortAssets(result)
	return result, nil
}

// ListActive retrieves assets first seen at or after sinceMs, ordered
// by first_seen_at ASC.
func (s *AssetStore) ListActive(_ context.Context, sinceMs int64) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Asset
	for _, a := range s.data {
		if a.FirstSeenAt < sinceMs {
			continue
		}
		assetCopy := *a
		result = append(result, &assetCopy)
	}

	sortAssets(result)
	return result, nil
}

func sortAssets(assets []*domain.Asset) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].FirstSeenAt == assets[j].FirstSeenAt {
			return assets[i].Address < assets[j].Address
		}
		return assets[i].FirstSeenAt < assets[j].FirstSeenAt
	})
}

// Verify interface compliance at compile time.
var _ storage.AssetStore = (*AssetStore)(nil)

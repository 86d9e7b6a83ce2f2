package memory

import (
	"context"
	"sort"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" || sig.AssetAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	sigCopy := *sig
	s.data[sig.SignalID] = &sigCopy
	return nil
}

// GetByID retrieves a signal by its ID. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	sigCopy := *sig
	return &sigCopy, nil
}

// GetByAsset retrieves all signals for an asset ordered by snapshot_ms ASC.
func (s *SignalStore) GetByAsset(_ context.Context, assetAddress string) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.AssetAddress == assetAddress {
			sigCopy := *sig
			result = append(result, &sigCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SnapshotMs < result[j].SnapshotMs
	})

	return result, nil
}

// HasRecent reports whether the asset has any signal with snapshot_ms >= sinceMs.
func (s *SignalStore) HasRecent(_ context.Context, assetAddress string, sinceMs int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sig := range s.data {
		if sig.AssetAddress == assetAddress && sig.SnapshotMs >= sinceMs {
			return true, nil
		}
	}
	return false, nil
}

// ListSince retrieves all signals with snapshot_ms >= sinceMs ordered by snapshot_ms ASC.
func (s *SignalStore) ListSince(_ context.Context, sinceMs int64) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Signal
	for _, sig := range s.data {
		if sig.SnapshotMs >= sinceMs {
			sigCopy := *sig
			result = append(result, &sigCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SnapshotMs < result[j].SnapshotMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SignalStore = (*SignalStore)(nil)

package memory

import (
	"context"
	"sort"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// RejectionStore is an in-memory implementation of storage.RejectionStore.
type RejectionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Rejection // keyed by rejection_id
}

// NewRejectionStore creates a new in-memory rejection store.
func NewRejectionStore() *RejectionStore {
	return &RejectionStore{
		data: make(map[string]*domain.Rejection),
	}
}

// Insert adds a rejection. Returns ErrDuplicateKey if rejection_id exists.
func (s *RejectionStore) Insert(_ context.Context, r *domain.Rejection) error {
	if r == nil || r.RejectionID == "" || r.AssetAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RejectionID]; exists {
		return storage.ErrDuplicateKey
	}

	rejCopy := *r
	rejCopy.Reasons = append([]string(nil), r.Reasons...)
	s.data[r.RejectionID] = &rejCopy
	return nil
}

// ListSince retrieves rejections with snapshot_ms >= sinceMs ordered by snapshot_ms ASC.
func (s *RejectionStore) ListSince(_ context.Context, sinceMs int64) ([]*domain.Rejection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Rejection
	for _, r := range s.data {
		if r.SnapshotMs >= sinceMs {
			rejCopy := *r
			rejCopy.Reasons = append([]string(nil), r.Reasons...)
			result = append(result, &rejCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SnapshotMs < result[j].SnapshotMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.RejectionStore = (*RejectionStore)(nil)

package memory

import (
	"context"
	"sort"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// snapshotKey identifies one snapshot row.
type snapshotKey struct {
	assetAddress string
	timestampMs  int64
}

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[snapshotKey]*domain.MetricSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[snapshotKey]*domain.MetricSnapshot),
	}
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (asset_address, timestamp_ms) exists.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.MetricSnapshot) error {
	if snap == nil || snap.AssetAddress == "" || snap.TimestampMs <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(snap)
}

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.MetricSnapshot) error {
	for _, snap := range snapshots {
		if snap == nil || snap.AssetAddress == "" || snap.TimestampMs <= 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check the whole batch before writing so a failure leaves no partial state.
	for _, snap := range snapshots {
		key := snapshotKey{assetAddress: snap.AssetAddress, timestampMs: snap.TimestampMs}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, snap := range snapshots {
		if err := s.insertLocked(snap); err != nil {
			return err
		}
	}
	return nil
}

func (s *SnapshotStore) insertLocked(snap *domain.MetricSnapshot) error {
	key := snapshotKey{assetAddress: snap.AssetAddress, timestampMs: snap.TimestampMs}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	snapCopy := *snap
	s.data[key] = &snapCopy
	return nil
}

// GetRecent retrieves snapshots for an asset with timestamp_ms >= sinceMs, ordered ASC.
func (s *SnapshotStore) GetRecent(_ context.Context, assetAddress string, sinceMs int64) ([]*domain.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricSnapshot
	for key, snap := range s.data {
		if key.assetAddress == assetAddress && key.timestampMs >= sinceMs {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetLatest retrieves the newest snapshot for an asset. Returns ErrNotFound if none.
func (s *SnapshotStore) GetLatest(_ context.Context, assetAddress string) (*domain.MetricSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.MetricSnapshot
	for key, snap := range s.data {
		if key.assetAddress != assetAddress {
			continue
		}
		if latest == nil || snap.TimestampMs > latest.TimestampMs {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	snapCopy := *latest
	return &snapCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

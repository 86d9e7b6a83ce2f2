package memory

import (
	"context"
	"sort"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// PositionStore is an in-memory implementation of storage.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position_id
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

func copyPosition(p *domain.Position) *domain.Position {
	posCopy := *p
	if p.ClosedAt != nil {
		closedAt := *p.ClosedAt
		posCopy.ClosedAt = &closedAt
	}
	return &posCopy
}

// Insert adds a position. Returns ErrDuplicateKey if position_id exists
// or the asset already has an OPEN position.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if p == nil || p.PositionID == "" || p.AssetAddress == "" || !p.Status.IsValid() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.PositionID]; exists {
		return storage.ErrDuplicateKey
	}
	if p.Status == domain.PositionOpen {
		for _, existing := range s.data {
			if existing.AssetAddress == p.AssetAddress && existing.Status == domain.PositionOpen {
				return storage.ErrDuplicateKey
			}
		}
	}

	s.data[p.PositionID] = copyPosition(p)
	return nil
}

// GetByID retrieves a position by its ID. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyPosition(p), nil
}

// GetOpenByAsset retrieves the OPEN position for an asset. Returns ErrNotFound if none.
func (s *PositionStore) GetOpenByAsset(_ context.Context, assetAddress string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.data {
		if p.AssetAddress == assetAddress && p.Status == domain.PositionOpen {
			return copyPosition(p), nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListOpen retrieves all OPEN positions ordered by opened_at ASC.
func (s *PositionStore) ListOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status == domain.PositionOpen {
			result = append(result, copyPosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OpenedAt == result[j].OpenedAt {
			return result[i].PositionID < result[j].PositionID
		}
		return result[i].OpenedAt < result[j].OpenedAt
	})

	return result, nil
}

// ListClosedSince retrieves terminal positions closed at or after sinceMs, ordered by closed_at ASC.
func (s *PositionStore) ListClosedSince(_ context.Context, sinceMs int64) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Status.IsTerminal() && p.ClosedAt != nil && *p.ClosedAt >= sinceMs {
			result = append(result, copyPosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if *result[i].ClosedAt == *result[j].ClosedAt {
			return result[i].PositionID < result[j].PositionID
		}
		return *result[i].ClosedAt < *result[j].ClosedAt
	})

	return result, nil
}

// UpdateROI stores the latest observed ROI for an OPEN position.
func (s *PositionStore) UpdateROI(_ context.Context, positionID string, roi float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}
	if p.Status != domain.PositionOpen {
		return storage.ErrInvalidInput
	}
	p.CurrentROI = roi
	return nil
}

// RequestClose flags an OPEN position for manual close on the next
// monitor pass. Returns ErrInvalidInput if the position is not OPEN.
func (s *PositionStore) RequestClose(_ context.Context, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}
	if p.Status != domain.PositionOpen {
		return storage.ErrInvalidInput
	}
	p.CloseRequested = true
	return nil
}

// Close transitions an OPEN position to a terminal status. The final
// ROI is recomputed from the exit price so closed positions always
// carry their realized outcome.
func (s *PositionStore) Close(_ context.Context, positionID string, status domain.PositionStatus, exitPrice float64, exitTxRef string, closedAtMs int64) error {
	if !status.IsTerminal() || closedAtMs <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[positionID]
	if !exists {
		return storage.ErrNotFound
	}
	if p.Status != domain.PositionOpen {
		return storage.ErrInvalidInput
	}

	p.Status = status
	p.ExitPrice = exitPrice
	p.ExitTxRef = exitTxRef
	p.ClosedAt = &closedAtMs
	p.CurrentROI = p.ROIAt(exitPrice)
	return nil
}

// Verify interface compliance at compile time.
var _ storage.PositionStore = (*PositionStore)(nil)

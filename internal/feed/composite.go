package feed

import (
	"context"

	"go.uber.org/zap"

	"solana-prepump-engine/internal/domain"
)

// CompositeSource joins market metrics with the locally derived
// smart-wallet count into the full snapshot the scorer consumes.
type CompositeSource struct {
	market Source
	smart  *SmartWalletCounter
	logger *zap.Logger
}

// NewCompositeSource creates a composite source.
func NewCompositeSource(market Source, smart *SmartWalletCounter, logger *zap.Logger) *CompositeSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompositeSource{
		market: market,
		smart:  smart,
		logger: logger,
	}
}

// Compile-time interface check.
var _ Source = (*CompositeSource)(nil)

// GetSnapshot fetches market metrics and fills in the smart-wallet count.
// A failed count degrades to zero; the snapshot itself still flows.
func (s *CompositeSource) GetSnapshot(ctx context.Context, asset string) (*domain.MetricSnapshot, error) {
	snapshot, err := s.market.GetSnapshot(ctx, asset)
	if err != nil {
		return nil, err
	}

	count, err := s.smart.Count(ctx, asset)
	if err != nil {
		s.logger.Warn("smart wallet count unavailable",
			zap.String("asset", asset),
			zap.Error(err))
		count = 0
	}
	snapshot.SmartWalletCount = count

	return snapshot, nil
}

// GetPrice delegates to the market source.
func (s *CompositeSource) GetPrice(ctx context.Context, asset string) (float64, error) {
	return s.market.GetPrice(ctx, asset)
}

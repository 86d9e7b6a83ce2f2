// Package feed supplies market observations: metric snapshots over HTTP,
// listing and trade events over WebSocket, and the smart-wallet activity
// derived from them.
package feed

import (
	"context"
	"errors"

	"solana-prepump-engine/internal/domain"
)

// ErrUnavailable is returned when market data for an asset cannot be
// obtained. The caller skips the asset for the cycle.
var ErrUnavailable = errors.New("market data unavailable")

// ErrRateLimited is returned on a 429 from the market API. It is not
// retried here; the circuit breaker decides when to call again.
var ErrRateLimited = errors.New("market data rate limited")

// Source produces metric snapshots for the scoring cycle and spot prices
// for the position monitor.
type Source interface {
	// GetSnapshot returns the current market observation for an asset.
	GetSnapshot(ctx context.Context, asset string) (*domain.MetricSnapshot, error)

	// GetPrice returns the current price only. Cheaper than GetSnapshot,
	// meant for the high-frequency monitor poll.
	GetPrice(ctx context.Context, asset string) (float64, error)
}

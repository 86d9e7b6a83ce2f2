// Package execution submits trades to a swap-routing service and
// reports confirmed outcomes. The engine never talks to a venue
// directly; everything goes through the Gateway interface so paper
// trading and live trading swap cleanly.
package execution

import (
	"context"
	"errors"

	"solana-prepump-engine/internal/domain"
)

// ErrSubmission means the venue rejected the trade or the submission
// could not be completed. The attempt is recorded and no position is
// opened.
var ErrSubmission = errors.New("trade submission failed")

// ErrRateLimited means the venue throttled the request. It is not
// retried here; the circuit breaker decides when to call again.
var ErrRateLimited = errors.New("trade endpoint rate limited")

// Gateway executes trade intents and returns confirmed outcomes.
type Gateway interface {
	// Submit executes the intent and blocks until the venue confirms
	// or rejects it. A returned outcome always carries a tx reference.
	Submit(ctx context.Context, intent domain.TradeIntent) (*domain.TradeOutcome, error)
}

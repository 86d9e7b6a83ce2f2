// Package stub provides a paper-trading gateway for dev mode and
// tests. Fills are deterministic: every trade fills exactly at the
// configured quote.
package stub

import (
	"context"
	"fmt"
	"sync"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/execution"
)

// Gateway fills trades at configured quotes without touching a venue.
type Gateway struct {
	mu        sync.Mutex
	quotes    map[string]float64
	err       error
	submitted []domain.TradeIntent
	seq       int
}

// NewGateway creates an empty paper gateway. Trades against assets
// with no quote are rejected.
func NewGateway() *Gateway {
	return &Gateway{
		quotes: make(map[string]float64),
	}
}

var _ execution.Gateway = (*Gateway)(nil)

// SetQuote sets the fill price for an asset.
func (g *Gateway) SetQuote(assetAddress string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.quotes[assetAddress] = price
}

// FailWith makes every subsequent Submit return err. Pass nil to
// restore normal fills.
func (g *Gateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Submitted returns a copy of every intent received, in order.
func (g *Gateway) Submitted() []domain.TradeIntent {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.TradeIntent, len(g.submitted))
	copy(out, g.submitted)
	return out
}

// Submit fills the intent at the configured quote. Buys convert quote
// units to tokens, sells convert tokens back.
func (g *Gateway) Submit(_ context.Context, intent domain.TradeIntent) (*domain.TradeOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.submitted = append(g.submitted, intent)

	if g.err != nil {
		return nil, g.err
	}

	price, ok := g.quotes[intent.AssetAddress]
	if !ok || price <= 0 {
		return nil, fmt.Errorf("%w: no quote for %s", execution.ErrSubmission, intent.AssetAddress)
	}

	g.seq++
	outcome := &domain.TradeOutcome{
		TxRef:         fmt.Sprintf("paper-%06d", g.seq),
		ExecutedPrice: price,
	}

	switch intent.Side {
	case domain.SideBuy:
		outcome.AmountOut = intent.Amount / price
	case domain.SideSell:
		outcome.AmountOut = intent.Amount * price
	default:
		return nil, fmt.Errorf("%w: invalid side %q", execution.ErrSubmission, intent.Side)
	}

	return outcome, nil
}

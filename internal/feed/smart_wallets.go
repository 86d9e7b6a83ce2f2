package feed

import (
	"context"
	"sync"
	"time"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

// Default smart-wallet qualification thresholds.
const (
	DefaultSmartMinROI     = 2.5
	DefaultSmartMinTrades  = 15
	DefaultSmartMinWinRate = 0.4
	DefaultQualifiedTTL    = 10 * time.Minute
)

// DefaultSmartWalletCriteria returns the default qualification thresholds.
func DefaultSmartWalletCriteria() domain.SmartWalletCriteria {
	return domain.SmartWalletCriteria{
		MinROI:     DefaultSmartMinROI,
		MinTrades:  DefaultSmartMinTrades,
		MinWinRate: DefaultSmartMinWinRate,
	}
}

// SmartWalletCounter counts how many qualified wallets recently bought an
// asset. The qualified set is loaded from the score store and cached for a
// TTL; a refresh failure with a warm cache serves the stale set.
type SmartWalletCounter struct {
	tracker  *ActivityTracker
	scores   storage.WalletScoreStore
	criteria domain.SmartWalletCriteria
	ttl      time.Duration

	mu        sync.Mutex
	qualified map[string]struct{}
	fetchedAt time.Time

	now func() time.Time
}

// NewSmartWalletCounter creates a counter. Zero criteria and TTL fall back
// to defaults.
func NewSmartWalletCounter(tracker *ActivityTracker, scores storage.WalletScoreStore, criteria domain.SmartWalletCriteria, ttl time.Duration) *SmartWalletCounter {
	if criteria == (domain.SmartWalletCriteria{}) {
		criteria = DefaultSmartWalletCriteria()
	}
	if ttl <= 0 {
		ttl = DefaultQualifiedTTL
	}
	return &SmartWalletCounter{
		tracker:  tracker,
		scores:   scores,
		criteria: criteria,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Count returns the number of qualified wallets among an asset's recent
// buyers.
func (c *SmartWalletCounter) Count(ctx context.Context, asset string) (int64, error) {
	qualified, err := c.qualifiedSet(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, wallet := range c.tracker.RecentBuyers(asset) {
		if _, ok := qualified[wallet]; ok {
			n++
		}
	}
	return n, nil
}

// qualifiedSet returns the cached qualified-wallet set, refreshing it when
// the TTL has passed.
func (c *SmartWalletCounter) qualifiedSet(ctx context.Context) (map[string]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.qualified != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.qualified, nil
	}

	scores, err := c.scores.ListQualified(ctx, c.criteria)
	if err != nil {
		if c.qualified != nil {
			return c.qualified, nil
		}
		return nil, err
	}

	qualified := make(map[string]struct{}, len(scores))
	for _, s := range scores {
		qualified[s.Wallet] = struct{}{}
	}

	c.qualified = qualified
	c.fetchedAt = c.now()
	return qualified, nil
}

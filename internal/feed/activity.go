package feed

import (
	"sort"
	"sync"
	"time"

	"solana-prepump-engine/internal/solana"
)

// DefaultActivityWindow matches the 20-minute buyer window of the metric
// snapshots.
const DefaultActivityWindow = 20 * time.Minute

// ActivityTracker keeps a rolling window of recent buyer wallets per asset.
// Off-curve addresses (pool vaults, bonding-curve accounts and other PDAs)
// are not buyers and are dropped at record time.
type ActivityTracker struct {
	window time.Duration

	mu     sync.RWMutex
	buyers map[string]map[string]int64 // asset -> wallet -> last buy (ms)

	onCurve func(string) bool
	now     func() time.Time
}

// NewActivityTracker creates a tracker with the given window.
func NewActivityTracker(window time.Duration) *ActivityTracker {
	if window <= 0 {
		window = DefaultActivityWindow
	}
	return &ActivityTracker{
		window:  window,
		buyers:  make(map[string]map[string]int64),
		onCurve: solana.IsOnCurve,
		now:     time.Now,
	}
}

// RecordBuy notes that a wallet bought an asset.
func (t *ActivityTracker) RecordBuy(asset, wallet string) {
	if asset == "" || !t.onCurve(wallet) {
		return
	}

	nowMs := t.now().UnixMilli()

	t.mu.Lock()
	defer t.mu.Unlock()

	wallets, ok := t.buyers[asset]
	if !ok {
		wallets = make(map[string]int64)
		t.buyers[asset] = wallets
	}
	wallets[wallet] = nowMs
}

// RecentBuyers returns the wallets that bought an asset within the window,
// sorted for deterministic output.
func (t *ActivityTracker) RecentBuyers(asset string) []string {
	cutoff := t.now().Add(-t.window).UnixMilli()

	t.mu.RLock()
	defer t.mu.RUnlock()

	wallets, ok := t.buyers[asset]
	if !ok {
		return nil
	}

	var out []string
	for wallet, lastBuy := range wallets {
		if lastBuy >= cutoff {
			out = append(out, wallet)
		}
	}
	sort.Strings(out)
	return out
}

// Prune drops entries older than the window. Called once per scoring cycle
// to bound memory.
func (t *ActivityTracker) Prune() {
	cutoff := t.now().Add(-t.window).UnixMilli()

	t.mu.Lock()
	defer t.mu.Unlock()

	for asset, wallets := range t.buyers {
		for wallet, lastBuy := range wallets {
			if lastBuy < cutoff {
				delete(wallets, wallet)
			}
		}
		if len(wallets) == 0 {
			delete(t.buyers, asset)
		}
	}
}

package feed

import (
	"testing"
	"time"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

// newTestTracker bypasses the curve check so tests can use short wallet names.
func newTestTracker(window time.Duration) (*ActivityTracker, *fakeClock) {
	clock := &fakeClock{current: time.UnixMilli(1_000_000)}
	tracker := NewActivityTracker(window)
	tracker.onCurve = func(string) bool { return true }
	tracker.now = clock.now
	return tracker, clock
}

func TestActivityTrackerRecordsBuyers(t *testing.T) {
	tracker, _ := newTestTracker(20 * time.Minute)

	tracker.RecordBuy("TokenAAA", "wallet-b")
	tracker.RecordBuy("TokenAAA", "wallet-a")
	tracker.RecordBuy("TokenAAA", "wallet-a") // repeat buy, same wallet
	tracker.RecordBuy("TokenBBB", "wallet-c")

	buyers := tracker.RecentBuyers("TokenAAA")
	if len(buyers) != 2 {
		t.Fatalf("expected 2 buyers, got %d", len(buyers))
	}
	if buyers[0] != "wallet-a" || buyers[1] != "wallet-b" {
		t.Errorf("expected sorted buyers, got %v", buyers)
	}

	if got := tracker.RecentBuyers("TokenCCC"); got != nil {
		t.Errorf("expected nil for unknown asset, got %v", got)
	}
}

func TestActivityTrackerWindowExpiry(t *testing.T) {
	tracker, clock := newTestTracker(20 * time.Minute)

	tracker.RecordBuy("TokenAAA", "wallet-old")
	clock.advance(15 * time.Minute)
	tracker.RecordBuy("TokenAAA", "wallet-new")
	clock.advance(10 * time.Minute)

	// wallet-old is 25m stale, wallet-new 10m
	buyers := tracker.RecentBuyers("TokenAAA")
	if len(buyers) != 1 || buyers[0] != "wallet-new" {
		t.Errorf("expected only wallet-new, got %v", buyers)
	}
}

func TestActivityTrackerPrune(t *testing.T) {
	tracker, clock := newTestTracker(20 * time.Minute)

	tracker.RecordBuy("TokenAAA", "wallet-a")
	tracker.RecordBuy("TokenBBB", "wallet-b")
	clock.advance(30 * time.Minute)
	tracker.RecordBuy("TokenBBB", "wallet-c")

	tracker.Prune()

	if len(tracker.buyers) != 1 {
		t.Errorf("expected one asset left after prune, got %d", len(tracker.buyers))
	}
	if _, ok := tracker.buyers["TokenBBB"]; !ok {
		t.Error("expected TokenBBB to survive prune")
	}
	if _, ok := tracker.buyers["TokenBBB"]["wallet-b"]; ok {
		t.Error("expected stale wallet-b pruned")
	}
}

func TestActivityTrackerRejectsOffCurveWallets(t *testing.T) {
	// Real curve check: the system program address is a valid curve point,
	// the Raydium AMM authority is a PDA and is not.
	tracker := NewActivityTracker(20 * time.Minute)

	tracker.RecordBuy("TokenAAA", "11111111111111111111111111111111")
	tracker.RecordBuy("TokenAAA", "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
	tracker.RecordBuy("TokenAAA", "not-a-wallet")
	tracker.RecordBuy("", "11111111111111111111111111111111")

	buyers := tracker.RecentBuyers("TokenAAA")
	if len(buyers) != 1 {
		t.Fatalf("expected 1 buyer, got %v", buyers)
	}
	if buyers[0] != "11111111111111111111111111111111" {
		t.Errorf("unexpected buyer: %s", buyers[0])
	}
}

func TestActivityTrackerDefaultWindow(t *testing.T) {
	tracker := NewActivityTracker(0)
	if tracker.window != DefaultActivityWindow {
		t.Errorf("expected default window, got %v", tracker.window)
	}
}

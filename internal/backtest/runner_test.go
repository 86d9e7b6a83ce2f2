package backtest

import (
	"context"
	"math"
	"testing"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage/memory"
)

func seedStores(t *testing.T, series map[string][]*domain.MetricSnapshot) (*memory.AssetStore, *memory.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	assets := memory.NewAssetStore()
	snapshots := memory.NewSnapshotStore()
	for addr, snaps := range series {
		err := assets.Upsert(ctx, &domain.Asset{
			Address:     addr,
			FirstSeenAt: snaps[0].TimestampMs,
			CreatedAt:   snaps[0].TimestampMs,
		})
		if err != nil {
			t.Fatalf("Upsert %s failed: %v", addr, err)
		}
		if err := snapshots.InsertBulk(ctx, snaps); err != nil {
			t.Fatalf("InsertBulk %s failed: %v", addr, err)
		}
	}
	return assets, snapshots
}

func TestRunner_ReplaysStoredHistory(t *testing.T) {
	series := baseSeries()
	series[btHot] = append(series[btHot],
		priceSnap(btHot, triggerMs+60_000, 1.0),
		priceSnap(btHot, triggerMs+120_000, 1.6),
	)
	assets, snapshots := seedStores(t, series)

	runner := NewRunner(assets, snapshots, newTestEngine(DefaultConfig()), nil)

	// The early snapshots fall before the range and serve as feature
	// history only.
	result, err := runner.Run(context.Background(), 1_500_000, 2_000_000)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Cycles != 3 {
		t.Errorf("Expected 3 cycles, got %d", result.Cycles)
	}
	if len(result.Trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(result.Trades))
	}
	trade := result.Trades[0]
	if trade.Reason != ExitTakeProfit || math.Abs(trade.ROI-60) > 1e-9 {
		t.Errorf("Unexpected trade: reason %s, ROI %f", trade.Reason, trade.ROI)
	}
}

func TestRunner_ExcludesSnapshotsPastRangeEnd(t *testing.T) {
	series := baseSeries()
	series[btHot] = append(series[btHot],
		priceSnap(btHot, triggerMs+60_000, 1.0),
		priceSnap(btHot, triggerMs+120_000, 1.6),
	)
	assets, snapshots := seedStores(t, series)

	runner := NewRunner(assets, snapshots, newTestEngine(DefaultConfig()), nil)

	// The range ends before the exit snapshot, so the trade stays open.
	result, err := runner.Run(context.Background(), 1_500_000, triggerMs+60_000)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Trades) != 0 {
		t.Errorf("Expected no closed trades, got %d", len(result.Trades))
	}
	if result.OpenAtEnd != 1 {
		t.Errorf("Expected 1 position open at end, got %d", result.OpenAtEnd)
	}
}

func TestRunner_InvalidRange(t *testing.T) {
	assets, snapshots := seedStores(t, baseSeries())
	runner := NewRunner(assets, snapshots, newTestEngine(DefaultConfig()), nil)

	if _, err := runner.Run(context.Background(), 500, 500); err == nil {
		t.Error("Expected error for empty range")
	}
	if _, err := runner.Run(context.Background(), -1, 500); err == nil {
		t.Error("Expected error for negative range start")
	}
}

func TestRunner_EmptyUniverse(t *testing.T) {
	runner := NewRunner(memory.NewAssetStore(), memory.NewSnapshotStore(), newTestEngine(DefaultConfig()), nil)

	result, err := runner.Run(context.Background(), 0, 1_000_000)
	if err != nil {
		t.Fatalf("Empty run should not error: %v", err)
	}
	if result.Cycles != 0 || len(result.Trades) != 0 {
		t.Errorf("Expected empty results, got %+v", result)
	}
}

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

func createTestSignal(id, asset string, snapshotMs int64) *domain.Signal {
	return &domain.Signal{
		SignalID:         id,
		AssetAddress:     asset,
		SnapshotMs:       snapshotMs,
		InstabilityIndex: 4.2,
		Threshold:        3.1,
		Regime:           domain.RegimeDegen,
		Price:            0.000123,
		Liquidity:        85000,
		MarketCap:        450000,
		WinProbability:   0.71,
		KellyFraction:    0.18,
		PositionSize:     180,
		ValueAtRisk:      -0.22,
		MaxDrawdown:      0.35,
		Verdict:          domain.VerdictExecute,
		VerdictReason:    "",
		CreatedAt:        snapshotMs + 5,
	}
}

func TestSignalStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	signal := createTestSignal("sig-1", "TokenAAA", 60_000)
	require.NoError(t, store.Insert(ctx, signal))

	got, err := store.GetByID(ctx, "sig-1")
	require.NoError(t, err)
	assert.Equal(t, signal.SignalID, got.SignalID)
	assert.Equal(t, signal.AssetAddress, got.AssetAddress)
	assert.Equal(t, signal.SnapshotMs, got.SnapshotMs)
	assert.InDelta(t, signal.InstabilityIndex, got.InstabilityIndex, 0.0001)
	assert.InDelta(t, signal.Threshold, got.Threshold, 0.0001)
	assert.Equal(t, domain.RegimeDegen, got.Regime)
	assert.InDelta(t, signal.Price, got.Price, 0.0000001)
	assert.InDelta(t, signal.WinProbability, got.WinProbability, 0.0001)
	assert.InDelta(t, signal.KellyFraction, got.KellyFraction, 0.0001)
	assert.InDelta(t, signal.PositionSize, got.PositionSize, 0.0001)
	assert.InDelta(t, signal.ValueAtRisk, got.ValueAtRisk, 0.0001)
	assert.InDelta(t, signal.MaxDrawdown, got.MaxDrawdown, 0.0001)
	assert.Equal(t, domain.VerdictExecute, got.Verdict)
	assert.Empty(t, got.VerdictReason)

	err = store.Insert(ctx, signal)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSignalStore_HasRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	signal := createTestSignal("sig-1", "TokenAAA", 60_000)
	signal.CreatedAt = 100_000
	require.NoError(t, store.Insert(ctx, signal))

	recent, err := store.HasRecent(ctx, "TokenAAA", 100_000)
	require.NoError(t, err)
	assert.True(t, recent, "cutoff equal to created_at counts as recent")

	recent, err = store.HasRecent(ctx, "TokenAAA", 100_001)
	require.NoError(t, err)
	assert.False(t, recent)

	recent, err = store.HasRecent(ctx, "TokenBBB", 0)
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestSignalStore_ListSinceAndGetByAsset(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)

	early := createTestSignal("sig-early", "TokenAAA", 10_000)
	early.CreatedAt = 10_000
	early.Verdict = domain.VerdictWait
	early.VerdictReason = "low_confidence"
	late := createTestSignal("sig-late", "TokenBBB", 20_000)
	late.CreatedAt = 20_000
	require.NoError(t, store.Insert(ctx, early))
	require.NoError(t, store.Insert(ctx, late))

	all, err := store.ListSince(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sig-early", all[0].SignalID)
	assert.Equal(t, "sig-late", all[1].SignalID)
	assert.Equal(t, domain.VerdictWait, all[0].Verdict)
	assert.Equal(t, "low_confidence", all[0].VerdictReason)

	onlyLate, err := store.ListSince(ctx, 20_000)
	require.NoError(t, err)
	require.Len(t, onlyLate, 1)
	assert.Equal(t, "sig-late", onlyLate[0].SignalID)

	byAsset, err := store.GetByAsset(ctx, "TokenAAA")
	require.NoError(t, err)
	require.Len(t, byAsset, 1)
	assert.Equal(t, "sig-early", byAsset[0].SignalID)
}

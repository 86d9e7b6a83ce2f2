package memory

import (
	"context"
	"errors"
	"testing"

	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/storage"
)

func signal(id, asset string, snapshotMs int64) *domain.Signal {
	return &domain.Signal{
		SignalID:     id,
		AssetAddress: asset,
		SnapshotMs:   snapshotMs,
		Verdict:      domain.VerdictExecute,
	}
}

func TestSignalInsertAndGet(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, signal("sig_1", "TokenAAA", 1000)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.Insert(ctx, signal("sig_1", "TokenAAA", 1000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	got, err := store.GetByID(ctx, "sig_1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AssetAddress != "TokenAAA" {
		t.Fatalf("unexpected signal %+v", got)
	}

	if _, err := store.GetByID(ctx, "sig_missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSignalHasRecent(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, signal("sig_1", "TokenAAA", 5000)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	recent, err := store.HasRecent(ctx, "TokenAAA", 5000)
	if err != nil {
		t.Fatalf("has recent failed: %v", err)
	}
	if !recent {
		t.Fatal("expected signal at the boundary to count as recent")
	}

	recent, err = store.HasRecent(ctx, "TokenAAA", 5001)
	if err != nil {
		t.Fatalf("has recent failed: %v", err)
	}
	if recent {
		t.Fatal("expected no recent signal past the boundary")
	}

	recent, err = store.HasRecent(ctx, "TokenBBB", 0)
	if err != nil {
		t.Fatalf("has recent failed: %v", err)
	}
	if recent {
		t.Fatal("expected no recent signal for other asset")
	}
}

func TestSignalListSinceOrdersAscending(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for _, sig := range []*domain.Signal{
		signal("sig_3", "TokenCCC", 3000),
		signal("sig_1", "TokenAAA", 1000),
		signal("sig_2", "TokenBBB", 2000),
	} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	got, err := store.ListSince(ctx, 2000)
	if err != nil {
		t.Fatalf("list since failed: %v", err)
	}
	if len(got) != 2 || got[0].SignalID != "sig_2" || got[1].SignalID != "sig_3" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestSignalGetByAsset(t *testing.T) {
	store := NewSignalStore()
	ctx := context.Background()

	for _, sig := range []*domain.Signal{
		signal("sig_2", "TokenAAA", 2000),
		signal("sig_1", "TokenAAA", 1000),
		signal("sig_3", "TokenBBB", 1500),
	} {
		if err := store.Insert(ctx, sig); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	got, err := store.GetByAsset(ctx, "TokenAAA")
	if err != nil {
		t.Fatalf("get by asset failed: %v", err)
	}
	if len(got) != 2 || got[0].SignalID != "sig_1" || got[1].SignalID != "sig_2" {
		t.Fatalf("unexpected result %+v", got)
	}
}

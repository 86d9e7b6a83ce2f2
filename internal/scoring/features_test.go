package scoring

import (
	"errors"
	"math"
	"testing"

	"solana-prepump-engine/internal/domain"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

func snap(tsMs int64, price float64, holders int64) *domain.MetricSnapshot {
	return &domain.MetricSnapshot{
		AssetAddress: testMint,
		TimestampMs:  tsMs,
		Price:        price,
		HolderCount:  holders,
	}
}

func TestDeriveFeatures_InsufficientHistory(t *testing.T) {
	now := int64(1_700_000_000_000)
	history := []*domain.MetricSnapshot{
		snap(now-600_000, 1.0, 100),
		snap(now, 1.0, 120),
	}

	_, err := DeriveFeatures(history)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestDeriveFeatures_HolderAcceleration(t *testing.T) {
	now := int64(1_700_000_000_000)
	// Holders 100 → 150 → 180: v1 = 30, v2 = 50, accel = -20/181.
	history := []*domain.MetricSnapshot{
		snap(now-1_200_000, 1.0, 100),
		snap(now-600_000, 1.0, 150),
		snap(now, 1.0, 180),
	}

	fv, err := DeriveFeatures(history)
	if err != nil {
		t.Fatalf("DeriveFeatures failed: %v", err)
	}

	want := (30.0 - 50.0) / 181.0
	if math.Abs(fv.HolderAcceleration-want) > 1e-12 {
		t.Errorf("holder acceleration = %v, want %v", fv.HolderAcceleration, want)
	}
}

func TestDeriveFeatures_StealthAndSellPressure(t *testing.T) {
	now := int64(1_700_000_000_000)
	history := []*domain.MetricSnapshot{
		snap(now-1_200_000, 1.0, 100),
		snap(now-600_000, 1.0, 100),
		snap(now, 1.0, 100),
	}
	latest := history[2]
	latest.UniqueBuyers20m = 40
	latest.Buys20m = 30
	latest.Sells20m = 10
	latest.Buys5m = 15
	latest.Sells5m = 5
	latest.SmartWalletCount = 3

	fv, err := DeriveFeatures(history)
	if err != nil {
		t.Fatalf("DeriveFeatures failed: %v", err)
	}

	// Flat price → stability clamps to 1; SA = 40 * (1 - 10/30) * 1.
	wantSA := 40.0 * (1.0 - 10.0/(30.0+epsilon))
	if math.Abs(fv.StealthAccumulation-wantSA) > 1e-6 {
		t.Errorf("stealth accumulation = %v, want %v", fv.StealthAccumulation, wantSA)
	}

	wantSP := 5.0 / (15.0 + 5.0 + 1.0)
	if math.Abs(fv.SellPressure-wantSP) > 1e-12 {
		t.Errorf("sell pressure = %v, want %v", fv.SellPressure, wantSP)
	}

	if fv.SmartWalletRotation != 3 {
		t.Errorf("smart wallet rotation = %v, want 3", fv.SmartWalletRotation)
	}
}

func TestDeriveFeatures_VolatilityShift(t *testing.T) {
	now := int64(1_700_000_000_000)
	minute := int64(60_000)
	// Quiet 20m window, then movement inside the last 5 minutes.
	history := []*domain.MetricSnapshot{
		snap(now-20*minute, 1.0, 100),
		snap(now-10*minute, 1.0, 100),
		snap(now-4*minute, 1.0, 100),
		snap(now-2*minute, 1.2, 100),
		snap(now, 0.8, 100),
	}

	fv, err := DeriveFeatures(history)
	if err != nil {
		t.Fatalf("DeriveFeatures failed: %v", err)
	}

	short := computeStd([]float64{1.0, 1.2, 0.8})
	long := computeStd([]float64{1.0, 1.0, 1.0, 1.2, 0.8})
	want := short / (long + epsilon)
	if math.Abs(fv.VolatilityShift-want) > 1e-12 {
		t.Errorf("volatility shift = %v, want %v", fv.VolatilityShift, want)
	}
	if fv.VolatilityShift <= 1 {
		t.Errorf("expanding volatility should read above 1, got %v", fv.VolatilityShift)
	}
}

func TestDeriveFeatures_OrderIndependent(t *testing.T) {
	now := int64(1_700_000_000_000)
	ordered := []*domain.MetricSnapshot{
		snap(now-1_200_000, 1.0, 100),
		snap(now-600_000, 1.1, 150),
		snap(now, 1.2, 180),
	}
	shuffled := []*domain.MetricSnapshot{ordered[2], ordered[0], ordered[1]}

	a, err := DeriveFeatures(ordered)
	if err != nil {
		t.Fatalf("DeriveFeatures(ordered) failed: %v", err)
	}
	b, err := DeriveFeatures(shuffled)
	if err != nil {
		t.Fatalf("DeriveFeatures(shuffled) failed: %v", err)
	}

	if a != b {
		t.Errorf("feature derivation depends on input order:\n  ordered:  %+v\n  shuffled: %+v", a, b)
	}
}

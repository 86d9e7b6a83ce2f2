package scoring

import (
	"math"
	"testing"

	"solana-prepump-engine/internal/domain"
)

// batchOf builds a feature batch where one column varies and the rest are
// held constant, so the composite isolates a single weight.
func batchOf(n int, set func(i int, f *domain.FeatureVector)) []domain.FeatureVector {
	batch := make([]domain.FeatureVector, n)
	for i := range batch {
		batch[i].AssetAddress = string(rune('A' + i))
		set(i, &batch[i])
	}
	return batch
}

func TestScoreBatch_ConstantColumnsScoreZero(t *testing.T) {
	// Every feature identical across the batch → every z and every index
	// must be exactly zero, and the threshold is the percentile of zeros.
	scorer := NewScorer(DefaultConfig())

	batch := batchOf(10, func(i int, f *domain.FeatureVector) {
		f.StealthAccumulation = 3.3
		f.HolderAcceleration = -0.1
		f.VolatilityShift = 1.0
		f.SmartWalletRotation = 2
		f.SellPressure = 0.4
	})

	result := scorer.ScoreBatch(batch)

	for _, s := range result.Scores {
		if s.Instability != 0 {
			t.Errorf("asset %s: instability = %v, want exactly 0", s.AssetAddress, s.Instability)
		}
		if s.ZStealth != 0 || s.ZHolder != 0 || s.ZVolatility != 0 || s.ZSmartWallet != 0 || s.ZSellPressure != 0 {
			t.Errorf("asset %s: expected all z-scores exactly 0, got %+v", s.AssetAddress, s)
		}
	}
	if !result.CanTrigger() {
		t.Fatalf("batch of 10 should produce a threshold")
	}
	if result.Threshold != 0 {
		t.Errorf("threshold = %v, want 0", result.Threshold)
	}
}

func TestScoreBatch_SingleVaryingColumn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBatchSize = 5
	scorer := NewScorer(cfg)

	// stealth = [1..5], everything else constant: II = 2 * z(stealth),
	// z = (v - 3) / (1.4826 * 1).
	batch := batchOf(5, func(i int, f *domain.FeatureVector) {
		f.StealthAccumulation = float64(i + 1)
		f.VolatilityShift = 1.0
	})

	result := scorer.ScoreBatch(batch)

	if result.Regime != domain.RegimeStable {
		t.Fatalf("regime = %v, want STABLE", result.Regime)
	}
	for i, s := range result.Scores {
		wantZ := (float64(i+1) - 3) / 1.4826
		if math.Abs(s.ZStealth-wantZ) > 1e-12 {
			t.Errorf("z stealth[%d] = %v, want %v", i, s.ZStealth, wantZ)
		}
		if math.Abs(s.Instability-2*wantZ) > 1e-12 {
			t.Errorf("instability[%d] = %v, want %v", i, s.Instability, 2*wantZ)
		}
	}
}

func TestScoreBatch_SellPressureSubtracts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinBatchSize = 5
	scorer := NewScorer(cfg)

	batch := batchOf(5, func(i int, f *domain.FeatureVector) {
		f.SellPressure = float64(i+1) / 10
		f.VolatilityShift = 1.0
	})

	result := scorer.ScoreBatch(batch)

	// The asset with the highest sell pressure must carry the lowest index.
	last := result.Scores[len(result.Scores)-1]
	if last.Instability >= 0 {
		t.Errorf("highest sell pressure should score negative, got %v", last.Instability)
	}
	first := result.Scores[0]
	if first.Instability <= last.Instability {
		t.Errorf("lowest sell pressure (%v) should outrank highest (%v)", first.Instability, last.Instability)
	}
}

func TestScoreBatch_RegimeReweighting(t *testing.T) {
	// Volatility column [1,1,1,1,50]: CV ≈ 1.81 but MAD 0, so its z is
	// degenerate and the index reduces to the holder term alone. Holder
	// weight is 1.5 under STABLE and 0.75 under DEGEN.
	build := func() []domain.FeatureVector {
		return batchOf(5, func(i int, f *domain.FeatureVector) {
			f.HolderAcceleration = float64(i + 1)
			f.VolatilityShift = 1.0
			if i == 4 {
				f.VolatilityShift = 50.0
			}
		})
	}

	stableCfg := DefaultConfig()
	stableCfg.MinBatchSize = 5
	stableCfg.DegenDispersion = 100 // unreachable → STABLE
	stable := NewScorer(stableCfg).ScoreBatch(build())

	degenCfg := DefaultConfig()
	degenCfg.MinBatchSize = 5
	degenCfg.DegenDispersion = 1.0
	degen := NewScorer(degenCfg).ScoreBatch(build())

	if stable.Regime != domain.RegimeStable {
		t.Fatalf("regime = %v, want STABLE", stable.Regime)
	}
	if degen.Regime != domain.RegimeDegen {
		t.Fatalf("regime = %v, want DEGEN (dispersion %v)", degen.Regime, degen.Dispersion)
	}

	for i := range stable.Scores {
		s, d := stable.Scores[i].Instability, degen.Scores[i].Instability
		if s == 0 {
			if d != 0 {
				t.Errorf("asset %d: stable 0 but degen %v", i, d)
			}
			continue
		}
		// 0.75 / 1.5 = 0.5
		if math.Abs(d/s-0.5) > 1e-9 {
			t.Errorf("asset %d: degen/stable ratio = %v, want 0.5", i, d/s)
		}
	}
}

func TestScoreBatch_ThresholdIsBatchPercentile(t *testing.T) {
	cfg := DefaultConfig()
	scorer := NewScorer(cfg)

	batch := batchOf(20, func(i int, f *domain.FeatureVector) {
		f.HolderAcceleration = float64(i + 1)
		f.VolatilityShift = 1.0
	})

	result := scorer.ScoreBatch(batch)

	indices := make([]float64, len(result.Scores))
	for i, s := range result.Scores {
		indices[i] = s.Instability
	}
	// Scores ascend with holder acceleration, so they are already sorted.
	want := computePercentile(indices, cfg.TriggerPercentile)
	if math.Abs(result.Threshold-want) > 1e-12 {
		t.Errorf("threshold = %v, want %v", result.Threshold, want)
	}

	// Exactly the top asset should clear a 95th-percentile bar in a batch
	// of 20 strictly increasing scores.
	above := 0
	for _, ii := range indices {
		if ii > result.Threshold {
			above++
		}
	}
	if above != 1 {
		t.Errorf("assets above threshold = %d, want 1", above)
	}
}

func TestScoreBatch_BelowMinBatchSizeCannotTrigger(t *testing.T) {
	scorer := NewScorer(DefaultConfig()) // MinBatchSize 8

	batch := batchOf(5, func(i int, f *domain.FeatureVector) {
		f.StealthAccumulation = float64(i)
		f.VolatilityShift = 1.0
	})

	result := scorer.ScoreBatch(batch)

	if result.CanTrigger() {
		t.Fatalf("batch of 5 with min 8 must not produce a threshold")
	}
	if !math.IsInf(result.Threshold, 1) {
		t.Errorf("threshold = %v, want +Inf", result.Threshold)
	}
	// Scores are still produced for observability.
	if len(result.Scores) != 5 {
		t.Errorf("scores = %d, want 5", len(result.Scores))
	}
}

func TestScoreBatch_Empty(t *testing.T) {
	result := NewScorer(DefaultConfig()).ScoreBatch(nil)

	if len(result.Scores) != 0 {
		t.Errorf("expected no scores, got %d", len(result.Scores))
	}
	if result.CanTrigger() {
		t.Errorf("empty batch must not trigger")
	}
	if result.Regime != domain.RegimeStable {
		t.Errorf("regime = %v, want STABLE default", result.Regime)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"percentile zero", func(c *Config) { c.TriggerPercentile = 0 }, true},
		{"percentile one", func(c *Config) { c.TriggerPercentile = 1 }, true},
		{"min batch zero", func(c *Config) { c.MinBatchSize = 0 }, true},
		{"dispersion negative", func(c *Config) { c.DegenDispersion = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

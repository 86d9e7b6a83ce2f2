package scoring

import (
	"fmt"
	"math"
	"sort"

	"solana-prepump-engine/internal/domain"
)

// Weights holds the composite index weights. SellPressure is subtracted;
// all weights are stored positive.
type Weights struct {
	StealthAccumulation float64
	HolderAcceleration  float64
	VolatilityShift     float64
	SmartWalletRotation float64
	SellPressure        float64
}

// DefaultWeights returns the base composite weights.
func DefaultWeights() Weights {
	return Weights{
		StealthAccumulation: 2.0,
		HolderAcceleration:  1.5,
		VolatilityShift:     1.5,
		SmartWalletRotation: 2.0,
		SellPressure:        2.0,
	}
}

// DegenWeights returns the weights applied under the DEGEN regime: faster
// features (volatility shift, stealth accumulation) gain weight and holder
// growth, a lagging signal in fast markets, loses most of its.
func DegenWeights() Weights {
	return Weights{
		StealthAccumulation: 2.5,
		HolderAcceleration:  0.75,
		VolatilityShift:     2.5,
		SmartWalletRotation: 2.0,
		SellPressure:        2.0,
	}
}

// Config holds scorer parameters.
type Config struct {
	// TriggerPercentile of the batch index distribution used as the
	// signal threshold, in (0,1). Default 0.95.
	TriggerPercentile float64
	// MinBatchSize is the smallest cross-section that may produce a
	// trigger threshold. Smaller batches are scored but cannot fire.
	MinBatchSize int
	// DegenDispersion is the dispersion cutoff separating STABLE from
	// DEGEN regimes.
	DegenDispersion float64

	Weights      Weights
	DegenWeights Weights
}

// DefaultConfig returns scorer defaults.
func DefaultConfig() Config {
	return Config{
		TriggerPercentile: 0.95,
		MinBatchSize:      8,
		DegenDispersion:   1.0,
		Weights:           DefaultWeights(),
		DegenWeights:      DegenWeights(),
	}
}

// Validate rejects configurations that cannot produce meaningful scores.
func (c Config) Validate() error {
	if c.TriggerPercentile <= 0 || c.TriggerPercentile >= 1 {
		return fmt.Errorf("trigger percentile must be in (0,1), got %v", c.TriggerPercentile)
	}
	if c.MinBatchSize < 1 {
		return fmt.Errorf("min batch size must be >= 1, got %d", c.MinBatchSize)
	}
	if c.DegenDispersion <= 0 {
		return fmt.Errorf("degen dispersion threshold must be > 0, got %v", c.DegenDispersion)
	}
	return nil
}

// AssetScore is one asset's standardized features and composite index.
type AssetScore struct {
	AssetAddress string

	ZStealth      float64
	ZHolder       float64
	ZVolatility   float64
	ZSmartWallet  float64
	ZSellPressure float64

	Instability float64
}

// BatchScore is the result of scoring one cross-sectional batch. All
// assets in the batch share the same threshold and regime.
type BatchScore struct {
	Scores     []AssetScore
	Regime     domain.Regime
	Dispersion float64
	// Threshold is the trigger threshold for this cycle. +Inf when the
	// batch is below the minimum size, so nothing can cross it.
	Threshold float64
	BatchSize int
}

// CanTrigger reports whether this batch produced a usable threshold.
func (b *BatchScore) CanTrigger() bool {
	return !math.IsInf(b.Threshold, 1)
}

// Score returns the score for an asset, or nil if it was not in the batch.
func (b *BatchScore) Score(assetAddress string) *AssetScore {
	for i := range b.Scores {
		if b.Scores[i].AssetAddress == assetAddress {
			return &b.Scores[i]
		}
	}
	return nil
}

// Scorer converts cross-sectional feature batches into composite scores.
// Stateless: regime is computed fresh per batch and returned, never kept.
type Scorer struct {
	config Config
}

// NewScorer creates a scorer with the given configuration.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// ScoreBatch standardizes the batch feature-wise with robust z-scores,
// detects the regime, and computes the composite instability index plus
// the cycle trigger threshold.
func (s *Scorer) ScoreBatch(features []domain.FeatureVector) *BatchScore {
	n := len(features)
	result := &BatchScore{
		Scores:    make([]AssetScore, n),
		Regime:    domain.RegimeStable,
		Threshold: math.Inf(1),
		BatchSize: n,
	}
	if n == 0 {
		return result
	}

	stealth := make([]float64, n)
	holder := make([]float64, n)
	vol := make([]float64, n)
	smart := make([]float64, n)
	sell := make([]float64, n)
	for i, f := range features {
		stealth[i] = f.StealthAccumulation
		holder[i] = f.HolderAcceleration
		vol[i] = f.VolatilityShift
		smart[i] = f.SmartWalletRotation
		sell[i] = f.SellPressure
	}

	regime, dispersion := detectRegime(vol, s.config.DegenDispersion)
	result.Regime = regime
	result.Dispersion = dispersion

	weights := s.config.Weights
	if regime == domain.RegimeDegen {
		weights = s.config.DegenWeights
	}

	zStealth := robustZColumn(stealth)
	zHolder := robustZColumn(holder)
	zVol := robustZColumn(vol)
	zSmart := robustZColumn(smart)
	zSell := robustZColumn(sell)

	indices := make([]float64, n)
	for i := range features {
		ii := weights.StealthAccumulation*zStealth[i] +
			weights.HolderAcceleration*zHolder[i] +
			weights.VolatilityShift*zVol[i] +
			weights.SmartWalletRotation*zSmart[i] -
			weights.SellPressure*zSell[i]

		result.Scores[i] = AssetScore{
			AssetAddress:  features[i].AssetAddress,
			ZStealth:      zStealth[i],
			ZHolder:       zHolder[i],
			ZVolatility:   zVol[i],
			ZSmartWallet:  zSmart[i],
			ZSellPressure: zSell[i],
			Instability:   ii,
		}
		indices[i] = ii
	}

	if n >= s.config.MinBatchSize {
		sorted := make([]float64, n)
		copy(sorted, indices)
		sort.Float64s(sorted)
		result.Threshold = computePercentile(sorted, s.config.TriggerPercentile)
	}

	return result
}

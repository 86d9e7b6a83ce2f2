package scoring

import (
	"solana-prepump-engine/internal/domain"
)

// detectRegime classifies the batch from the cross-sectional dispersion of
// the volatility-shift feature, measured as the coefficient of variation
// (population std over mean). Unlike the score standardization this is
// outlier-sensitive: a tail of wild movers reads as high dispersion.
func detectRegime(volShift []float64, degenThreshold float64) (domain.Regime, float64) {
	if len(volShift) == 0 {
		return domain.RegimeStable, 0
	}

	mean := computeMean(volShift)
	if mean < epsilon {
		return domain.RegimeStable, 0
	}
	dispersion := computeStd(volShift) / mean

	if dispersion > degenThreshold {
		return domain.RegimeDegen, dispersion
	}
	return domain.RegimeStable, dispersion
}

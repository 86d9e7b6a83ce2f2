package alpha

import (
	"math/rand"
	"sort"
)

// RiskEstimate summarizes the simulated equity distribution for a
// candidate position size. Returns are expressed relative to starting
// capital, so -0.25 means a quarter of the allocated capital lost.
type RiskEstimate struct {
	ValueAtRisk    float64
	ExpectedReturn float64
	MaxDrawdown    float64
	MeanDrawdown   float64
	RiskOfRuin     float64
}

// simulationInput carries the statistical parameters of one Monte
// Carlo run.
type simulationInput struct {
	WinProbability float64
	AvgWin         float64
	AvgLoss        float64
	Fraction       float64
	Trials         int
	TradesPerTrial int
	Confidence     float64
	RuinFraction   float64
}

// simulate draws independent trade sequences from the win/loss
// distribution and compounds equity through each one. All randomness
// comes from the seeded source, so identical inputs produce identical
// estimates.
func simulate(seed int64, in simulationInput) RiskEstimate {
	if in.Trials <= 0 || in.TradesPerTrial <= 0 {
		return RiskEstimate{}
	}

	rng := rand.New(rand.NewSource(seed))

	terminals := make([]float64, 0, in.Trials)
	drawdowns := make([]float64, 0, in.Trials)
	worstDrawdown := 0.0
	ruined := 0

	for trial := 0; trial < in.Trials; trial++ {
		equity := 1.0
		peak := 1.0
		maxDrawdown := 0.0
		hitRuin := false

		for trade := 0; trade < in.TradesPerTrial; trade++ {
			if rng.Float64() < in.WinProbability {
				equity *= 1 + in.Fraction*in.AvgWin
			} else {
				equity *= 1 - in.Fraction*in.AvgLoss
			}
			if equity <= 0 {
				equity = 0
				hitRuin = true
				maxDrawdown = 1
				break
			}
			if equity > peak {
				peak = equity
			}
			if dd := (peak - equity) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
			if equity < in.RuinFraction {
				hitRuin = true
			}
		}

		terminals = append(terminals, equity)
		drawdowns = append(drawdowns, maxDrawdown)
		if maxDrawdown > worstDrawdown {
			worstDrawdown = maxDrawdown
		}
		if hitRuin {
			ruined++
		}
	}

	sort.Float64s(terminals)

	return RiskEstimate{
		ValueAtRisk:    percentileOf(terminals, in.Confidence) - 1,
		ExpectedReturn: meanOf(terminals) - 1,
		MaxDrawdown:    worstDrawdown,
		MeanDrawdown:   meanOf(drawdowns),
		RiskOfRuin:     float64(ruined) / float64(in.Trials),
	}
}

// percentileOf returns the p-th percentile of sorted values using
// linear interpolation between adjacent ranks.
func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := p * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

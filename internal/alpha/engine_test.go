package alpha

import (
	"math"
	"testing"

	"solana-prepump-engine/internal/domain"
)

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// testConfig shrinks the simulation so unit tests stay fast.
func testConfig() Config {
	config := DefaultConfig()
	config.Trials = 500
	config.TradesPerTrial = 50
	return config
}

func TestBetaPosteriorMean(t *testing.T) {
	cases := []struct {
		wins, losses int
		want         float64
	}{
		{0, 0, 0.5},
		{8, 2, 0.75},
		{3, 7, 1.0 / 3.0},
	}
	for _, c := range cases {
		got := betaPosteriorMean(c.wins, c.losses, 1, 1)
		if !approxEqual(got, c.want, 1e-12) {
			t.Fatalf("betaPosteriorMean(%d, %d) = %v, want %v", c.wins, c.losses, got, c.want)
		}
	}
}

func TestKellyFractionClampsToRange(t *testing.T) {
	const maxFraction = 0.25
	for p := 0.0; p <= 1.0; p += 0.05 {
		for b := 0.1; b <= 10.0; b += 0.37 {
			f := kellyFraction(p, b, maxFraction)
			if f < 0 || f > maxFraction {
				t.Fatalf("kellyFraction(%v, %v) = %v outside [0, %v]", p, b, f, maxFraction)
			}
		}
	}
}

func TestKellyFractionKnownValues(t *testing.T) {
	if got := kellyFraction(0.6, 2, 0.25); got != 0.25 {
		t.Fatalf("expected clamp to 0.25, got %v", got)
	}
	if got := kellyFraction(0.3, 1, 0.25); got != 0 {
		t.Fatalf("expected negative edge to clamp to 0, got %v", got)
	}
	if got := kellyFraction(0.9, 0, 0.25); got != 0 {
		t.Fatalf("expected zero payoff ratio to size to 0, got %v", got)
	}
}

func TestSimulateDeterministicForFixedSeed(t *testing.T) {
	input := simulationInput{
		WinProbability: 0.65,
		AvgWin:         0.5,
		AvgLoss:        0.3,
		Fraction:       0.2,
		Trials:         500,
		TradesPerTrial: 50,
		Confidence:     0.05,
		RuinFraction:   0.2,
	}

	first := simulate(7, input)
	second := simulate(7, input)
	if first != second {
		t.Fatalf("same seed produced different estimates: %+v vs %+v", first, second)
	}

	other := simulate(8, input)
	if first == other {
		t.Fatal("different seeds produced identical estimates")
	}
}

func TestSimulateZeroFractionIsFlat(t *testing.T) {
	estimate := simulate(1, simulationInput{
		WinProbability: 0.5,
		AvgWin:         0.5,
		AvgLoss:        0.3,
		Fraction:       0,
		Trials:         200,
		TradesPerTrial: 20,
		Confidence:     0.05,
		RuinFraction:   0.2,
	})

	if !approxEqual(estimate.ValueAtRisk, 0, 1e-12) || !approxEqual(estimate.ExpectedReturn, 0, 1e-12) {
		t.Fatalf("expected flat equity, got %+v", estimate)
	}
	if estimate.MaxDrawdown != 0 || estimate.RiskOfRuin != 0 {
		t.Fatalf("expected no drawdown or ruin, got %+v", estimate)
	}
}

func TestSimulateCertainLossRuinsEveryTrial(t *testing.T) {
	estimate := simulate(1, simulationInput{
		WinProbability: 0,
		AvgWin:         0.5,
		AvgLoss:        0.3,
		Fraction:       0.25,
		Trials:         200,
		TradesPerTrial: 50,
		Confidence:     0.05,
		RuinFraction:   0.2,
	})

	if estimate.RiskOfRuin != 1 {
		t.Fatalf("expected every trial ruined, got %v", estimate.RiskOfRuin)
	}
	if estimate.MaxDrawdown < 0.9 {
		t.Fatalf("expected deep drawdown, got %v", estimate.MaxDrawdown)
	}
	if estimate.ValueAtRisk > -0.9 {
		t.Fatalf("expected severe value at risk, got %v", estimate.ValueAtRisk)
	}
}

func TestAssessColdStartWaits(t *testing.T) {
	engine := NewEngine(testConfig())

	assessment := engine.Assess(TradeHistory{}, 1000)

	if assessment.Verdict != domain.VerdictWait {
		t.Fatalf("expected WAIT on cold start, got %s", assessment.Verdict)
	}
	if assessment.Reason != ReasonLowConfidence {
		t.Fatalf("expected reason %q, got %q", ReasonLowConfidence, assessment.Reason)
	}
	if !approxEqual(assessment.WinProbability, 0.5, 1e-12) {
		t.Fatalf("expected prior mean 0.5, got %v", assessment.WinProbability)
	}
	if !approxEqual(assessment.KellyFraction, 0.2, 1e-9) {
		t.Fatalf("expected kelly fraction 0.2 from default payoffs, got %v", assessment.KellyFraction)
	}
}

func TestAssessBorderlineProbabilityWaits(t *testing.T) {
	engine := NewEngine(testConfig())

	// Beta(1,1) posterior: (10+1)/(10+8+2) = 0.55, under the 0.60 floor.
	assessment := engine.Assess(TradeHistory{Wins: 10, Losses: 8, AvgWin: 0.5, AvgLoss: 0.3}, 1000)

	if assessment.Verdict != domain.VerdictWait {
		t.Fatalf("expected WAIT at borderline probability, got %s", assessment.Verdict)
	}
	if assessment.Reason != ReasonLowConfidence {
		t.Fatalf("expected reason %q, got %q", ReasonLowConfidence, assessment.Reason)
	}
	if !approxEqual(assessment.WinProbability, 0.55, 1e-12) {
		t.Fatalf("expected posterior 0.55, got %v", assessment.WinProbability)
	}
}

func TestAssessStrongHistoryExecutes(t *testing.T) {
	engine := NewEngine(testConfig())

	assessment := engine.Assess(TradeHistory{Wins: 9, Losses: 1, AvgWin: 0.5, AvgLoss: 0.3}, 1000)

	if assessment.Verdict != domain.VerdictExecute {
		t.Fatalf("expected EXECUTE, got %s (%s)", assessment.Verdict, assessment.Reason)
	}
	if !approxEqual(assessment.WinProbability, 10.0/12.0, 1e-12) {
		t.Fatalf("expected posterior 10/12, got %v", assessment.WinProbability)
	}
	if assessment.KellyFraction != 0.25 {
		t.Fatalf("expected kelly capped at 0.25, got %v", assessment.KellyFraction)
	}
	if !approxEqual(assessment.PositionSize, 250, 1e-9) {
		t.Fatalf("expected position size 250, got %v", assessment.PositionSize)
	}
}

func TestAssessZeroCapitalWaits(t *testing.T) {
	engine := NewEngine(testConfig())

	assessment := engine.Assess(TradeHistory{Wins: 9, Losses: 1, AvgWin: 0.5, AvgLoss: 0.3}, 0)

	if assessment.Verdict != domain.VerdictWait {
		t.Fatalf("expected WAIT with no capital, got %s", assessment.Verdict)
	}
	if assessment.Reason != ReasonZeroSize {
		t.Fatalf("expected reason %q, got %q", ReasonZeroSize, assessment.Reason)
	}
}

func TestAssessLosingHistoryWaits(t *testing.T) {
	engine := NewEngine(testConfig())

	assessment := engine.Assess(TradeHistory{Wins: 2, Losses: 8, AvgWin: 0.5, AvgLoss: 0.3}, 1000)

	if assessment.Verdict != domain.VerdictWait {
		t.Fatalf("expected WAIT on losing history, got %s", assessment.Verdict)
	}
	if assessment.Reason != ReasonLowConfidence {
		t.Fatalf("expected reason %q, got %q", ReasonLowConfidence, assessment.Reason)
	}
	if assessment.KellyFraction != 0 {
		t.Fatalf("expected zero kelly fraction, got %v", assessment.KellyFraction)
	}
}

func TestAssessDeterministic(t *testing.T) {
	engine := NewEngine(testConfig())
	history := TradeHistory{Wins: 7, Losses: 3, AvgWin: 0.45, AvgLoss: 0.25}

	first := engine.Assess(history, 5000)
	second := engine.Assess(history, 5000)

	if first != second {
		t.Fatalf("identical inputs produced different assessments: %+v vs %+v", first, second)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}

	bad := DefaultConfig()
	bad.MaxKellyFraction = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for zero kelly cap")
	}

	bad = DefaultConfig()
	bad.Trials = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for zero trials")
	}

	bad = DefaultConfig()
	bad.VaRConfidence = 1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected validation error for confidence of 1")
	}
}

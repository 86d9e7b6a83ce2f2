package alpha

import (
	"errors"

	"solana-prepump-engine/internal/domain"
)

// Reasons attached to WAIT verdicts.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonZeroSize      = "zero_size"
)

// TradeHistory aggregates realized outcomes of closed positions.
// AvgWin and AvgLoss are mean return magnitudes per trade, so 0.5
// means winners returned +50% on average and losers -50%.
type TradeHistory struct {
	Wins    int
	Losses  int
	AvgWin  float64
	AvgLoss float64
}

// Config holds the assessment parameters.
type Config struct {
	// PriorAlpha and PriorBeta parameterize the Beta prior over win
	// rate. Beta(1, 1) is uniform: with no history the win probability
	// starts at 0.5.
	PriorAlpha float64
	PriorBeta  float64

	// WinProbabilityFloor is the minimum posterior win probability for
	// an EXECUTE verdict. Below it the signal downgrades to WAIT.
	WinProbabilityFloor float64

	// MaxKellyFraction caps the Kelly bet fraction.
	MaxKellyFraction float64

	// DefaultAvgWin and DefaultAvgLoss stand in for the payoff
	// distribution until realized history exists. They mirror the
	// take-profit and stop-loss exits of a managed position.
	DefaultAvgWin  float64
	DefaultAvgLoss float64

	// Trials and TradesPerTrial size the Monte Carlo simulation.
	Trials         int
	TradesPerTrial int

	// VaRConfidence selects the terminal-equity percentile reported as
	// Value-at-Risk. 0.05 reports the 5th percentile outcome.
	VaRConfidence float64

	// RuinFraction is the equity level below which a trial counts as
	// ruined.
	RuinFraction float64

	// Seed drives the simulation's random source.
	Seed int64
}

// DefaultConfig returns the assessment parameters used in production.
func DefaultConfig() Config {
	return Config{
		PriorAlpha:          1,
		PriorBeta:           1,
		WinProbabilityFloor: 0.60,
		MaxKellyFraction:    0.25,
		DefaultAvgWin:       0.50,
		DefaultAvgLoss:      0.30,
		Trials:              10_000,
		TradesPerTrial:      100,
		VaRConfidence:       0.05,
		RuinFraction:        0.20,
		Seed:                1,
	}
}

// Validate checks config for invalid values.
func (c Config) Validate() error {
	if c.PriorAlpha <= 0 || c.PriorBeta <= 0 {
		return errors.New("beta prior parameters must be positive")
	}
	if c.WinProbabilityFloor < 0 || c.WinProbabilityFloor > 1 {
		return errors.New("win probability floor must be in [0, 1]")
	}
	if c.MaxKellyFraction <= 0 || c.MaxKellyFraction > 1 {
		return errors.New("max kelly fraction must be in (0, 1]")
	}
	if c.DefaultAvgWin <= 0 || c.DefaultAvgLoss <= 0 {
		return errors.New("default payoffs must be positive")
	}
	if c.Trials <= 0 || c.TradesPerTrial <= 0 {
		return errors.New("trial counts must be positive")
	}
	if c.VaRConfidence <= 0 || c.VaRConfidence >= 1 {
		return errors.New("var confidence must be in (0, 1)")
	}
	if c.RuinFraction <= 0 || c.RuinFraction >= 1 {
		return errors.New("ruin fraction must be in (0, 1)")
	}
	return nil
}

// Assessment is the full capital decision for one signal.
type Assessment struct {
	WinProbability float64
	PayoffRatio    float64
	KellyFraction  float64
	PositionSize   float64
	Risk           RiskEstimate
	Verdict        domain.Verdict
	Reason         string
}

// Engine computes assessments from trade history.
type Engine struct {
	config Config
}

// NewEngine creates an assessment engine.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Assess derives win probability, position size and risk for one
// candidate given the realized history and the capital available for
// allocation. It is a pure function of its arguments.
func (e *Engine) Assess(history TradeHistory, capital float64) Assessment {
	if capital < 0 {
		capital = 0
	}

	p := betaPosteriorMean(history.Wins, history.Losses, e.config.PriorAlpha, e.config.PriorBeta)

	avgWin, avgLoss := e.payoffs(history)
	payoffRatio := avgWin / avgLoss

	fraction := kellyFraction(p, payoffRatio, e.config.MaxKellyFraction)
	size := fraction * capital

	risk := simulate(e.config.Seed, simulationInput{
		WinProbability: p,
		AvgWin:         avgWin,
		AvgLoss:        avgLoss,
		Fraction:       fraction,
		Trials:         e.config.Trials,
		TradesPerTrial: e.config.TradesPerTrial,
		Confidence:     e.config.VaRConfidence,
		RuinFraction:   e.config.RuinFraction,
	})

	assessment := Assessment{
		WinProbability: p,
		PayoffRatio:    payoffRatio,
		KellyFraction:  fraction,
		PositionSize:   size,
		Risk:           risk,
		Verdict:        domain.VerdictExecute,
	}

	if p < e.config.WinProbabilityFloor {
		assessment.Verdict = domain.VerdictWait
		assessment.Reason = ReasonLowConfidence
		return assessment
	}
	if size <= 0 {
		assessment.Verdict = domain.VerdictWait
		assessment.Reason = ReasonZeroSize
		return assessment
	}
	return assessment
}

// payoffs selects realized payoff magnitudes when history has them and
// the configured defaults otherwise.
func (e *Engine) payoffs(history TradeHistory) (avgWin, avgLoss float64) {
	avgWin = e.config.DefaultAvgWin
	if history.Wins > 0 && history.AvgWin > 0 {
		avgWin = history.AvgWin
	}
	avgLoss = e.config.DefaultAvgLoss
	if history.Losses > 0 && history.AvgLoss > 0 {
		avgLoss = history.AvgLoss
	}
	return avgWin, avgLoss
}

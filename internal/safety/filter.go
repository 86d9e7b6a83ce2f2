// Package safety screens trigger candidates against structural risk
// criteria before any capital assessment runs. The filter is a pure
// predicate over snapshot and authority data: it performs no I/O and
// keeps no state between calls.
package safety

import (
	"errors"
	"fmt"

	"solana-prepump-engine/internal/domain"
)

// Config holds the structural thresholds a candidate must clear.
type Config struct {
	// LiquidityFloor is the minimum pool liquidity in quote units.
	// Candidates strictly below it are rejected.
	LiquidityFloor float64

	// MarketCapCeiling is the maximum market capitalisation in quote
	// units. Candidates strictly above it are rejected.
	MarketCapCeiling float64

	// ConcentrationCeiling is the maximum share of supply held by the
	// top ten wallets. Candidates strictly above it are rejected.
	ConcentrationCeiling float64
}

// DefaultConfig returns the filter thresholds used in production.
func DefaultConfig() Config {
	return Config{
		LiquidityFloor:       40_000,
		MarketCapCeiling:     3_000_000,
		ConcentrationCeiling: 0.35,
	}
}

// Validate checks config for invalid values.
func (c Config) Validate() error {
	if c.LiquidityFloor < 0 {
		return errors.New("liquidity floor must be non-negative")
	}
	if c.MarketCapCeiling <= 0 {
		return errors.New("market cap ceiling must be positive")
	}
	if c.ConcentrationCeiling <= 0 || c.ConcentrationCeiling > 1 {
		return errors.New("concentration ceiling must be in (0, 1]")
	}
	return nil
}

// CheckResult records the outcome of a single safety check.
type CheckResult struct {
	Name      string
	Reason    string
	Threshold string
	Actual    string
	Pass      bool
}

// Report is the full outcome of a filter evaluation. Checks appear in
// evaluation order so audit records read the same way every time.
type Report struct {
	AssetAddress string
	Checks       []CheckResult
}

// Passed reports whether every check cleared.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

// FailedReasons returns the reason codes of all failed checks, in
// evaluation order. Empty when the report passed.
func (r *Report) FailedReasons() []string {
	var reasons []string
	for _, c := range r.Checks {
		if !c.Pass {
			reasons = append(reasons, c.Reason)
		}
	}
	return reasons
}

// Filter evaluates candidates against the configured thresholds.
type Filter struct {
	config Config
}

// NewFilter creates a filter with the given thresholds.
func NewFilter(config Config) *Filter {
	return &Filter{config: config}
}

// Evaluate runs all safety checks against a candidate. The authority
// argument may be nil, meaning the chain query for it failed; in that
// case the authority checks fail closed rather than assuming a safe
// default.
func (f *Filter) Evaluate(snapshot *domain.MetricSnapshot, authority *domain.AuthorityState) *Report {
	report := &Report{AssetAddress: snapshot.AssetAddress}

	report.Checks = append(report.Checks, CheckResult{
		Name:      "Liquidity floor",
		Reason:    domain.RejectLowLiquidity,
		Threshold: fmt.Sprintf(">= %.0f", f.config.LiquidityFloor),
		Actual:    fmt.Sprintf("%.0f", snapshot.Liquidity),
		Pass:      snapshot.Liquidity >= f.config.LiquidityFloor,
	})

	report.Checks = append(report.Checks, CheckResult{
		Name:      "Market cap ceiling",
		Reason:    domain.RejectHighMarketCap,
		Threshold: fmt.Sprintf("<= %.0f", f.config.MarketCapCeiling),
		Actual:    fmt.Sprintf("%.0f", snapshot.MarketCap),
		Pass:      snapshot.MarketCap <= f.config.MarketCapCeiling,
	})

	report.Checks = append(report.Checks, CheckResult{
		Name:      "Holder concentration",
		Reason:    domain.RejectHighConcentration,
		Threshold: fmt.Sprintf("top10 <= %.2f", f.config.ConcentrationCeiling),
		Actual:    fmt.Sprintf("%.4f", snapshot.Top10Ratio),
		Pass:      snapshot.Top10Ratio <= f.config.ConcentrationCeiling,
	})

	if authority == nil {
		report.Checks = append(report.Checks, CheckResult{
			Name:      "Authority state",
			Reason:    domain.RejectAuthorityUnavailable,
			Threshold: "mint and freeze disabled",
			Actual:    "unavailable",
			Pass:      false,
		})
		return report
	}

	report.Checks = append(report.Checks, CheckResult{
		Name:      "Mint authority",
		Reason:    domain.RejectMintAuthority,
		Threshold: "disabled",
		Actual:    describeAuthority(authority.MintEnabled),
		Pass:      !authority.MintEnabled,
	})

	report.Checks = append(report.Checks, CheckResult{
		Name:      "Freeze authority",
		Reason:    domain.RejectFreezeAuthority,
		Threshold: "disabled",
		Actual:    describeAuthority(authority.FreezeEnabled),
		Pass:      !authority.FreezeEnabled,
	})

	return report
}

func describeAuthority(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

package domain

// Regime classifies the cross-sectional volatility state of one scoring
// batch. Computed fresh per batch and passed through results; never stored
// as shared mutable state.
type Regime string

const (
	RegimeStable Regime = "STABLE"
	RegimeDegen  Regime = "DEGEN"
)

// String returns the string representation of Regime.
func (r Regime) String() string {
	return string(r)
}

// IsValid checks if the regime is a valid value.
func (r Regime) IsValid() bool {
	return r == RegimeStable || r == RegimeDegen
}

package alpha

// kellyFraction computes the Kelly-optimal bet fraction for win
// probability p and payoff ratio b, clamped to [0, maxFraction].
// Degenerate payoff ratios (b <= 0) size to zero instead of producing
// a negative or infinite fraction.
func kellyFraction(p, b, maxFraction float64) float64 {
	if b <= 0 {
		return 0
	}
	q := 1 - p
	f := (p*b - q) / b
	if f < 0 {
		return 0
	}
	if f > maxFraction {
		return maxFraction
	}
	return f
}

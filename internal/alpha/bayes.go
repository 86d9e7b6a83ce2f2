// Package alpha turns a fired, filtered signal into a capital decision.
// It estimates win probability from realized trade history, sizes the
// position with a capped Kelly fraction and bounds the downside with a
// Monte Carlo equity simulation. Every function here is pure so the
// whole assessment is reproducible from its inputs.
package alpha

// betaPosteriorMean returns the mean of a Beta posterior over win rate
// after observing the given win and loss counts. The prior acts as
// pseudo-observations, so an empty history yields the prior mean
// rather than a division by zero.
func betaPosteriorMean(wins, losses int, priorAlpha, priorBeta float64) float64 {
	alpha := priorAlpha + float64(wins)
	beta := priorBeta + float64(losses)
	return alpha / (alpha + beta)
}

package scoring

import (
	"errors"
	"sort"

	"solana-prepump-engine/internal/domain"
)

// ErrInsufficientHistory is returned when an asset has too few snapshots
// to derive features. The asset is skipped for the cycle, not failed.
var ErrInsufficientHistory = errors.New("insufficient snapshot history")

// Window offsets for feature derivation, in milliseconds.
const (
	window5mMs  int64 = 5 * 60 * 1000
	window10mMs int64 = 10 * 60 * 1000
	window20mMs int64 = 20 * 60 * 1000
)

// minHistorySnapshots is the fewest observations that still give the
// holder-acceleration second derivative three distinct reference points.
const minHistorySnapshots = 3

const epsilon = 1e-9

// DeriveFeatures computes the behavioral feature vector for one asset from
// its snapshot history. History may arrive in any order; it is evaluated
// ascending by timestamp with the newest snapshot as "now".
func DeriveFeatures(history []*domain.MetricSnapshot) (domain.FeatureVector, error) {
	if len(history) < minHistorySnapshots {
		return domain.FeatureVector{}, ErrInsufficientHistory
	}

	ordered := make([]*domain.MetricSnapshot, len(history))
	copy(ordered, history)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].TimestampMs < ordered[j].TimestampMs
	})

	latest := ordered[len(ordered)-1]
	now := latest.TimestampMs

	prices20m := pricesSince(ordered, now-window20mMs)
	prices5m := pricesSince(ordered, now-window5mMs)

	holdersNow := float64(latest.HolderCount)
	holders10m := float64(holderCountAt(ordered, now-window10mMs))
	holders20m := float64(holderCountAt(ordered, now-window20mMs))

	return domain.FeatureVector{
		AssetAddress:        latest.AssetAddress,
		StealthAccumulation: stealthAccumulation(latest, prices20m),
		HolderAcceleration:  holderAcceleration(holdersNow, holders10m, holders20m),
		VolatilityShift:     volatilityShift(prices20m, prices5m),
		SmartWalletRotation: float64(latest.SmartWalletCount),
		SellPressure:        sellPressure(latest),
	}, nil
}

// holderAcceleration is the normalized second derivative of holder growth:
// (v1 - v2) / (holders + 1) with v1, v2 the deltas over the two most
// recent 10-minute windows. Positive means accelerating growth.
func holderAcceleration(now, tenAgo, twentyAgo float64) float64 {
	v1 := now - tenAgo
	v2 := tenAgo - twentyAgo
	return (v1 - v2) / (now + 1)
}

// stealthAccumulation rewards many unique buyers with few sells while the
// price stays flat: buyers x (1 - sell ratio) x price stability.
func stealthAccumulation(s *domain.MetricSnapshot, prices20m []float64) float64 {
	sellRatio := float64(s.Sells20m) / (float64(s.Buys20m) + epsilon)

	stability := 1.0 - computeStd(prices20m)/(computeMean(prices20m)+epsilon)
	if stability < 0 {
		stability = 0
	}
	if stability > 1 {
		stability = 1
	}

	return float64(s.UniqueBuyers20m) * (1.0 - sellRatio) * stability
}

// volatilityShift is short-window volatility over long-window volatility.
// Values above 1 mean recent volatility is expanding: compression ending.
func volatilityShift(prices20m, prices5m []float64) float64 {
	return computeStd(prices5m) / (computeStd(prices20m) + epsilon)
}

// sellPressure is the sell share of recent transactions, in [0,1).
func sellPressure(s *domain.MetricSnapshot) float64 {
	return float64(s.Sells5m) / (float64(s.Buys5m) + float64(s.Sells5m) + 1)
}

// pricesSince returns the prices of snapshots at or after cutoff, ascending.
func pricesSince(ordered []*domain.MetricSnapshot, cutoffMs int64) []float64 {
	var prices []float64
	for _, s := range ordered {
		if s.TimestampMs >= cutoffMs {
			prices = append(prices, s.Price)
		}
	}
	return prices
}

// holderCountAt returns the holder count of the newest snapshot at or
// before the target time, falling back to the oldest observation when the
// history does not reach that far back.
func holderCountAt(ordered []*domain.MetricSnapshot, targetMs int64) int64 {
	count := ordered[0].HolderCount
	for _, s := range ordered {
		if s.TimestampMs > targetMs {
			break
		}
		count = s.HolderCount
	}
	return count
}

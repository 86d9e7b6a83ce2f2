package scoring

import (
	"math"
	"sort"
)

// madScale converts a median absolute deviation into a standard-deviation
// equivalent for normally distributed data.
const madScale = 1.4826

// madEpsilon is the degeneracy cutoff: a column whose scaled MAD falls
// below it is treated as constant and standardizes to zero.
const madEpsilon = 1e-12

// computeMedian returns the median of values. Input is not modified.
func computeMedian(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// computeMAD returns the median absolute deviation around the given median.
func computeMAD(values []float64, median float64) float64 {
	if len(values) == 0 {
		return 0
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	return computeMedian(deviations)
}

// robustZColumn standardizes one feature column with median/MAD.
// A degenerate column (scaled MAD below madEpsilon) maps to all zeros
// instead of dividing by zero.
func robustZColumn(values []float64) []float64 {
	z := make([]float64, len(values))
	if len(values) == 0 {
		return z
	}

	median := computeMedian(values)
	scale := madScale * computeMAD(values, median)
	if scale < madEpsilon {
		return z
	}

	for i, v := range values {
		z[i] = (v - median) / scale
	}
	return z
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.95 = 95th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeStd returns the population standard deviation.
func computeStd(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// computeMean returns the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Package stat provides the population-statistics primitives shared by the
// scoring and analysis packages.
package stat

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range xs {
		s += v
	}
	return s / float64(len(xs))
}

// PopulationVariance returns the mean of squared deviations from the mean,
// dividing by N rather than N-1.
func PopulationVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := Mean(xs)
	s := 0.0
	for _, v := range xs {
		d := v - m
		s += d * d
	}
	return s / float64(len(xs))
}

// StdDev returns the population standard deviation of xs.
func StdDev(xs []float64) float64 {
	return math.Sqrt(PopulationVariance(xs))
}

// ZScore returns |x - mean| / stdDev. A zero stdDev divides by 1 instead, so a
// value equal to the mean yields 0 and any deviation yields the raw distance.
func ZScore(x, mean, stdDev float64) float64 {
	if stdDev == 0 {
		return math.Abs(x - mean)
	}
	return math.Abs(x-mean) / stdDev
}

// PercentileRank returns the share of values in xs that are <= x, as a
// percentage. x counts itself when present.
func PercentileRank(x float64, xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	n := 0
	for _, v := range xs {
		if v <= x {
			n++
		}
	}
	return float64(n) / float64(len(xs)) * 100
}

// Round2 rounds x half-up to 2 decimals.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// MinMax returns the smallest and largest value in xs. Both are 0 for an
// empty slice.
func MinMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	lo, hi := xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

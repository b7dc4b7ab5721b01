// Package formulas provides the numeric reductions used by the CAPM calculator.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values.
// Returns 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// GeometricMean calculates the per-period compounded return of a series of
// periodic returns.
//
// Formula: ((1+r1)*(1+r2)*...*(1+rN))^(1/N) - 1
//
// Returns 0 for an empty slice.
func GeometricMean(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	growth := make([]float64, len(returns))
	for i, r := range returns {
		growth[i] = 1 + r
	}

	return math.Pow(floats.Prod(growth), 1/float64(len(returns))) - 1
}

// SquaredDeviation returns the sum of squared deviations of data around mean
func SquaredDeviation(data []float64, mean float64) float64 {
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return sum
}

// Below returns the values strictly below threshold, preserving order
func Below(data []float64, threshold float64) []float64 {
	result := make([]float64, 0, len(data))
	for _, v := range data {
		if v < threshold {
			result = append(result, v)
		}
	}
	return result
}

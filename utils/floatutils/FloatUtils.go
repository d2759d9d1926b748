// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the
// max. If min exceeds the floating point, then the function returns
// the min.
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// Min calculates and returns the minimum float64 in a list
func Min(floats ...float64) float64 {
	min := floats[0]
	for _, val := range floats {
		if val < min {
			min = val
		}
	}
	return min
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}

// ArgMax returns the indices of the maximum values in a list. If
// multiple equal maximum values exist, all their indices are returned.
func ArgMax(floats ...float64) []int {
	max, indices := floats[0], []int{0}

	for i := 1; i < len(floats); i++ {
		if floats[i] > max {
			max = floats[i]
			indices = []int{i}
		} else if floats[i] == max {
			indices = append(indices, i)
		}
	}
	return indices
}

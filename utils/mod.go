package utils

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Number interface {
	constraints.Integer | constraints.Float
}

func FindIndex[T comparable](slice []T, item T) int {
	for i, v := range slice {
		if v == item {
			return i
		}
	}
	return -1
}

// ArgMax returns the first index holding the largest element, -1 when empty.
func ArgMax[T constraints.Ordered](slice []T) int {
	best := -1
	for i, v := range slice {
		if best < 0 || v > slice[best] {
			best = i
		}
	}
	return best
}

func Sum[T Number](slice []T) T {
	var total T
	for _, v := range slice {
		total += v
	}
	return total
}

func Mean[T Number](slice []T) float64 {
	if len(slice) == 0 {
		return 0
	}
	return float64(Sum(slice)) / float64(len(slice))
}

// Std is the population standard deviation.
func Std[T Number](slice []T) float64 {
	if len(slice) == 0 {
		return 0
	}
	mean := Mean(slice)
	variance := 0.0
	for _, v := range slice {
		d := float64(v) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(slice)))
}

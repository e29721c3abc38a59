// Package model holds learned CDF models that map a key to an estimate of
// its rank among the sorted training keys.
package model

import (
	"errors"
	"fmt"
	"math"
)

// Key is a fixed-width unsigned integer key.
type Key interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Model is a learned approximation of the CDF of a sorted key set.
type Model[K Key] interface {
	// Train fits the model to keys, which are sorted ascending and may
	// contain duplicates. Train replaces any previously learned state.
	Train(sorted []K) error

	// Predict estimates the rank of key among the training keys.
	Predict(key K) int

	// ByteSize returns the resident size of the model in bytes.
	ByteSize() int

	Name() string
}

var ErrInvalidConfig = errors.New("model: invalid configuration")

// point is a (key, rank) sample of the CDF.
type point struct {
	x uint64
	y float64
}

// firstRankPoints collapses duplicate runs of sorted keys into one point
// per distinct key, placed at the rank of its first occurrence.
func firstRankPoints[K Key](sorted []K) []point {
	points := make([]point, 0, len(sorted))
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		points = append(points, point{x: uint64(k), y: float64(i)})
	}
	return points
}

func clampRank(estimate float64, n int) int {
	if n == 0 || estimate <= 0 {
		return 0
	}
	if estimate >= float64(n-1) {
		return n - 1
	}
	return int(math.Round(estimate))
}

var ErrUnsortedKeys = errors.New("model: training keys are not sorted")

func checkSorted[K Key](sorted []K) error {
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] > sorted[i] {
			return fmt.Errorf("%w: keys[%d]=%d > keys[%d]=%d", ErrUnsortedKeys, i-1, sorted[i-1], i, sorted[i])
		}
	}
	return nil
}

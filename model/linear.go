package model

import (
	"fmt"
	"unsafe"
)

// Linear is a single least-squares line through (key, first rank) points.
// It is cheap and exact on evenly spaced keys.
type Linear[K Key] struct {
	n         int
	minKey    uint64
	slope     float64
	intercept float64
}

func NewLinear[K Key]() *Linear[K] {
	return &Linear[K]{}
}

func (l *Linear[K]) Train(sorted []K) error {
	if err := checkSorted(sorted); err != nil {
		return err
	}

	*l = Linear[K]{n: len(sorted)}
	if len(sorted) == 0 {
		return nil
	}

	pts := firstRankPoints(sorted)
	l.minKey = pts[0].x
	if len(pts) == 1 {
		return nil
	}

	// Fit on keys relative to the minimum to keep the sums well conditioned.
	var meanX, meanY float64
	for _, p := range pts {
		meanX += float64(p.x - l.minKey)
		meanY += p.y
	}
	meanX /= float64(len(pts))
	meanY /= float64(len(pts))

	var cov, varX float64
	for _, p := range pts {
		dx := float64(p.x-l.minKey) - meanX
		cov += dx * (p.y - meanY)
		varX += dx * dx
	}

	if varX > 0 {
		l.slope = cov / varX
	}
	l.intercept = meanY - l.slope*meanX
	return nil
}

func (l *Linear[K]) Predict(key K) int {
	k := uint64(key)
	var x float64
	if k >= l.minKey {
		x = float64(k - l.minKey)
	} else {
		x = -float64(l.minKey - k)
	}
	return clampRank(l.intercept+l.slope*x, l.n)
}

func (l *Linear[K]) ByteSize() int {
	return int(unsafe.Sizeof(*l))
}

func (l *Linear[K]) Name() string {
	return "Linear"
}

func (l *Linear[K]) String() string {
	return fmt.Sprintf("Linear{keys: %d, slope: %g, intercept: %g}", l.n, l.slope, l.intercept)
}

package model

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"
	"unsafe"

	"LearnedIndex/utils"
)

const (
	DefaultRadixBits   = 18
	DefaultSplineError = 16

	maxRadixBits = 28
)

// RadixSpline approximates the CDF with a linear spline whose knots keep
// every training key within SplineError ranks of the curve. A radix table
// over the top RadixBits bits of (key - min) narrows the knot search to a
// few candidates.
type RadixSpline[K Key] struct {
	radixBits   int
	splineError int

	n      int
	minKey uint64
	maxKey uint64
	shift  uint
	table  []uint32
	knots  []point
}

// NewRadixSpline returns an untrained RadixSpline. radixBits must be in
// [1, 28] and splineError non-negative.
func NewRadixSpline[K Key](radixBits, splineError int) (*RadixSpline[K], error) {
	if radixBits < 1 || radixBits > maxRadixBits {
		return nil, fmt.Errorf("%w: radix bits %d, supported 1..%d", ErrInvalidConfig, radixBits, maxRadixBits)
	}
	if splineError < 0 {
		return nil, fmt.Errorf("%w: negative spline error %d", ErrInvalidConfig, splineError)
	}
	return &RadixSpline[K]{radixBits: radixBits, splineError: splineError}, nil
}

// DefaultRadixSpline returns a RadixSpline with 18 radix bits and a spline
// error of 16.
func DefaultRadixSpline[K Key]() *RadixSpline[K] {
	return &RadixSpline[K]{radixBits: DefaultRadixBits, splineError: DefaultSplineError}
}

func (rs *RadixSpline[K]) Train(sorted []K) error {
	if err := checkSorted(sorted); err != nil {
		return err
	}

	*rs = RadixSpline[K]{radixBits: rs.radixBits, splineError: rs.splineError, n: len(sorted)}
	if len(sorted) == 0 {
		return nil
	}

	pts := firstRankPoints(sorted)
	rs.minKey = pts[0].x
	rs.maxKey = pts[len(pts)-1].x
	rs.knots = greedySplineCorridor(pts, float64(rs.splineError))
	rs.buildRadixTable()
	return nil
}

// greedySplineCorridor picks spline knots from pts such that linear
// interpolation between consecutive knots stays within maxErr of every
// point.
func greedySplineCorridor(pts []point, maxErr float64) []point {
	knots := []point{pts[0]}
	if len(pts) == 1 {
		return knots
	}

	upper := point{x: pts[1].x, y: pts[1].y + maxErr}
	lower := point{x: pts[1].x, y: max(0, pts[1].y-maxErr)}
	prev := pts[1]

	for _, p := range pts[2:] {
		last := knots[len(knots)-1]
		dx := float64(p.x - last.x)
		dy := p.y - last.y
		upperY := p.y + maxErr
		lowerY := max(0, p.y-maxErr)

		udx, udy := float64(upper.x-last.x), upper.y-last.y
		ldx, ldy := float64(lower.x-last.x), lower.y-last.y

		if orientation(udx, udy, dx, dy) != clockwise || orientation(ldx, ldy, dx, dy) != counterClockwise {
			// p left the corridor, close the segment at the previous point.
			knots = append(knots, prev)
			upper = point{x: p.x, y: upperY}
			lower = point{x: p.x, y: lowerY}
		} else {
			if orientation(udx, udy, dx, upperY-last.y) == clockwise {
				upper = point{x: p.x, y: upperY}
			}
			if orientation(ldx, ldy, dx, lowerY-last.y) == counterClockwise {
				lower = point{x: p.x, y: lowerY}
			}
		}
		prev = p
	}

	if knots[len(knots)-1].x != prev.x {
		knots = append(knots, prev)
	}
	return knots
}

type turn int

const (
	collinear turn = iota
	clockwise
	counterClockwise
)

const orientationEpsilon = 2.220446049250313e-16

func orientation(dx1, dy1, dx2, dy2 float64) turn {
	expr := dy1*dx2 - dy2*dx1
	switch {
	case expr > orientationEpsilon:
		return clockwise
	case expr < -orientationEpsilon:
		return counterClockwise
	default:
		return collinear
	}
}

func (rs *RadixSpline[K]) prefix(k uint64) uint64 {
	return (k - rs.minKey) >> rs.shift
}

// buildRadixTable sets table[p] to the index of the first knot whose prefix
// is >= p, for every prefix p of the key range plus one sentinel slot.
func (rs *RadixSpline[K]) buildRadixTable() {
	rangeBits := bits.Len64(rs.maxKey - rs.minKey)
	if rangeBits > rs.radixBits {
		rs.shift = uint(rangeBits - rs.radixBits)
	}

	maxPrefix := rs.prefix(rs.maxKey)
	rs.table = make([]uint32, maxPrefix+2)

	j := 0
	for p := range rs.table {
		for j < len(rs.knots) && rs.prefix(rs.knots[j].x) < uint64(p) {
			j++
		}
		rs.table[p] = uint32(j)
	}
}

func (rs *RadixSpline[K]) Predict(key K) int {
	if rs.n == 0 {
		return 0
	}
	k := uint64(key)
	if k <= rs.minKey {
		return 0
	}
	if k >= rs.maxKey {
		return clampRank(rs.knots[len(rs.knots)-1].y, rs.n)
	}

	p := rs.prefix(k)
	lo := int(rs.table[p])
	hi := min(int(rs.table[p+1]), len(rs.knots)-1)

	// The knot at hi is always > k, knots before lo are always < k.
	idx := lo + sort.Search(hi-lo, func(i int) bool {
		return rs.knots[lo+i].x >= k
	})

	up := rs.knots[idx]
	if up.x == k {
		return clampRank(up.y, rs.n)
	}
	down := rs.knots[idx-1]
	frac := float64(k-down.x) / float64(up.x-down.x)
	return clampRank(down.y+frac*(up.y-down.y), rs.n)
}

// ByteSize returns the resident size estimate in bytes.
func (rs *RadixSpline[K]) ByteSize() int {
	return int(unsafe.Sizeof(*rs)) + len(rs.knots)*int(unsafe.Sizeof(point{})) + len(rs.table)*4
}

func (rs *RadixSpline[K]) Name() string {
	return fmt.Sprintf("RadixSpline<%d,%d>", rs.radixBits, rs.splineError)
}

// Knots returns the number of spline knots.
func (rs *RadixSpline[K]) Knots() int { return len(rs.knots) }

// MemDetailed returns a detailed memory usage report for the RadixSpline.
func (rs *RadixSpline[K]) MemDetailed() utils.MemReport {
	return utils.MemReport{
		Name:       "radix_spline",
		TotalBytes: rs.ByteSize(),
		Children: []utils.MemReport{
			{Name: "header", TotalBytes: int(unsafe.Sizeof(*rs))},
			{Name: "knots", TotalBytes: len(rs.knots) * int(unsafe.Sizeof(point{}))},
			{Name: "radix_table", TotalBytes: len(rs.table) * 4},
		},
	}
}

func (rs *RadixSpline[K]) String() string {
	var sb strings.Builder
	sb.WriteString(rs.Name() + ":\n")
	sb.WriteString(fmt.Sprintf("| keys: %d\n", rs.n))
	sb.WriteString(fmt.Sprintf("| knots: %d\n", len(rs.knots)))
	sb.WriteString(fmt.Sprintf("| radix table: %d (shift %d)\n", len(rs.table), rs.shift))
	return sb.String()
}

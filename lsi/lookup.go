package lsi

import (
	"fmt"

	"LearnedIndex/errutil"
	"LearnedIndex/model"
	"LearnedIndex/perm"
)

// Mode selects the lookup semantics.
type Mode int

const (
	// ModeEquality finds the first occurrence of the key or End.
	ModeEquality Mode = iota
	// ModeLowerBound finds the first key not less than the query or End.
	ModeLowerBound
)

func (m Mode) String() string {
	switch m {
	case ModeEquality:
		return "equality"
	case ModeLowerBound:
		return "lower_bound"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Lookup resolves key against base, which must be the slice given to Fit.
// The returned cursor points at a sorted rank; its Offset is the position
// of the key in base. Not found is End, never an error.
func (idx *Index[K, M]) Lookup(base []K, key K, mode Mode) perm.Cursor {
	p := idx.lookup(base, key, mode)
	return idx.perm.At(p)
}

// Find is Lookup in ModeEquality.
func (idx *Index[K, M]) Find(base []K, key K) perm.Cursor {
	return idx.Lookup(base, key, ModeEquality)
}

// LowerBound is Lookup in ModeLowerBound.
func (idx *Index[K, M]) LowerBound(base []K, key K) perm.Cursor {
	return idx.Lookup(base, key, ModeLowerBound)
}

func (idx *Index[K, M]) lookup(base []K, key K, mode Mode) int {
	n := idx.perm.Len()
	if n == 0 {
		return 0
	}
	errutil.BugOn(len(base) < n, "lookup on %d base keys, index has %d", len(base), n)

	if mode == ModeEquality && idx.filter != nil {
		var buf [8]byte
		if !idx.filter.Test(keyBytes(&buf, key)) {
			return n
		}
	}

	var c counters
	defer func() { idx.record(c) }()

	start, stop := idx.window(key, n)

	var p int
	switch {
	case !idx.linear:
		p = binarySearch(idx.perm, base, key, start, stop, &c)
	case mode == ModeEquality && idx.fp.Enabled():
		p = fingerprintScan(idx.perm, idx.fp.Fingerprint(uint64(key)), base, key, start, stop, &c)
	default:
		p = linearScan(idx.perm, base, key, start, stop, &c)
	}

	if mode == ModeLowerBound {
		for p < n {
			v := base[idx.perm.Offset(p)]
			c.accesses++
			if v >= key {
				break
			}
			c.falsePositives++
			p++
		}
		return p
	}

	// Every trained key's first occurrence lies inside the window.
	if p == stop || p == n {
		return n
	}
	c.accesses++
	if base[idx.perm.Offset(p)] != key {
		return n
	}
	return p
}

// window returns the rank range [start, stop) the model error bound allows.
func (idx *Index[K, M]) window(key K, n int) (int, int) {
	pred := min(max(idx.model.Predict(key), 0), n)
	start := pred - min(pred, idx.maxError)
	stop := min(pred+idx.maxError+1, n)
	if start > stop {
		start = stop
	}
	return start, stop
}

// binarySearch returns the first rank in [start, stop) whose key is >= key,
// or stop.
func binarySearch[K model.Key](pv *perm.Vector, base []K, key K, start, stop int, c *counters) int {
	lo, hi := start, stop
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		c.accesses++
		if base[pv.Offset(mid)] < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func linearScan[K model.Key](pv *perm.Vector, base []K, key K, start, stop int, c *counters) int {
	for i := start; i < stop; i++ {
		c.accesses++
		if base[pv.Offset(i)] >= key {
			return i
		}
		c.falsePositives++
	}
	return stop
}

// fingerprintScan is linearScan that skips ranks whose stored fingerprint
// differs from the query's without touching base. Skipped ranks hold keys
// other than key, so the first rank holding key is never skipped.
func fingerprintScan[K model.Key](pv *perm.Vector, fp uint64, base []K, key K, start, stop int, c *counters) int {
	for i := start; i < stop; i++ {
		v := pv.Get(i)
		if v.Fingerprint != fp {
			continue
		}
		c.accesses++
		if base[v.Offset] >= key {
			return i
		}
		c.falsePositives++
	}
	return stop
}

// EqualRange returns the cursors delimiting every occurrence of key:
// [first, last). Both are End when key is absent.
func (idx *Index[K, M]) EqualRange(base []K, key K) (perm.Cursor, perm.Cursor) {
	first := idx.Find(base, key)
	if first.IsEnd() {
		return first, first
	}

	n := idx.perm.Len()
	pos := first.Pos()
	if idx.runs != nil {
		// Run starts in [0, pos]; pos itself is one.
		r := idx.runs.Rank(uint64(pos+1), true)
		if r >= idx.runOnes {
			return first, idx.perm.At(n)
		}
		return first, idx.perm.At(int(idx.runs.Select(r, true)))
	}

	var c counters
	last := pos + 1
	for last < n {
		c.accesses++
		if base[idx.perm.Offset(last)] != key {
			break
		}
		last++
	}
	idx.record(c)
	return first, idx.perm.At(last)
}

// Count returns the number of occurrences of key.
func (idx *Index[K, M]) Count(base []K, key K) int {
	first, last := idx.EqualRange(base, key)
	return last.Distance(first)
}

package lsi

import "sync/atomic"

// Stats is a snapshot of the lookup instrumentation counters.
type Stats struct {
	// BaseDataAccesses counts every read of the caller's key array.
	BaseDataAccesses uint64
	// FalsePositiveAccesses counts reads that landed on a key smaller than
	// the query, i.e. touches that did not advance the answer.
	FalsePositiveAccesses uint64
}

type diagnostics struct {
	base          atomic.Uint64
	falsePositive atomic.Uint64
}

// counters accumulate within a single lookup and are flushed once.
type counters struct {
	accesses       uint64
	falsePositives uint64
}

func (idx *Index[K, M]) record(c counters) {
	if idx.diag == nil {
		return
	}
	if c.accesses > 0 {
		idx.diag.base.Add(c.accesses)
	}
	if c.falsePositives > 0 {
		idx.diag.falsePositive.Add(c.falsePositives)
	}
}

// Stats returns the counters accumulated since construction or the last
// ResetStats. Without WithDiagnostics it is always zero.
func (idx *Index[K, M]) Stats() Stats {
	if idx.diag == nil {
		return Stats{}
	}
	return Stats{
		BaseDataAccesses:      idx.diag.base.Load(),
		FalsePositiveAccesses: idx.diag.falsePositive.Load(),
	}
}

func (idx *Index[K, M]) BaseDataAccesses() uint64 { return idx.Stats().BaseDataAccesses }

func (idx *Index[K, M]) FalsePositiveAccesses() uint64 { return idx.Stats().FalsePositiveAccesses }

func (idx *Index[K, M]) ResetStats() {
	if idx.diag == nil {
		return
	}
	idx.diag.base.Store(0)
	idx.diag.falsePositive.Store(0)
}

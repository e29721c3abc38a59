// Package lsi implements a learned secondary index over an unsorted array
// of unsigned integer keys.
//
// The index stores, for every rank in sorted key order, the offset of that
// key in the original array, bit-packed at minimal width. A learned CDF
// model predicts the rank of a query key and the index searches only the
// window of ranks the model's empirical maximum error allows, probing the
// caller's array through the stored offsets. The index never copies or
// reorders the caller's data; every lookup must be given the same array
// that was passed to Fit.
package lsi

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"unsafe"

	"LearnedIndex/fingerprint"
	"LearnedIndex/model"
	"LearnedIndex/perm"
	"LearnedIndex/utils"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/dustin/go-humanize"
	"github.com/hillbig/rsdic"
	"golang.org/x/exp/slices"
)

// Index is a learned secondary index over keys of type K using model M.
// It is empty until Fit. After Fit it is read-only and safe for concurrent
// lookups.
type Index[K model.Key, M model.Model[K]] struct {
	model    M
	perm     *perm.Vector
	maxError int

	fp     fingerprint.Fingerprinter
	linear bool

	filter  *bloom.BloomFilter
	runs    *rsdic.RSDic
	runOnes uint64

	cfg    config
	diag   *diagnostics
	logger *slog.Logger
}

// entry pairs a key with its offset in the unsorted input.
type entry[K model.Key] struct {
	key    K
	offset int
}

// New returns an empty index that will train m on Fit. All options are
// validated here; an unsupported configuration is an error.
func New[K model.Key, M model.Model[K]](m M, opts ...Option) (*Index[K, M], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	fp, err := fingerprint.NewSeeded(cfg.fingerprintBits, cfg.fingerprintSeed)
	if err != nil {
		return nil, fmt.Errorf("lsi: %w", err)
	}
	linear, err := cfg.useLinearSearch()
	if err != nil {
		return nil, err
	}

	idx := &Index[K, M]{
		model:  m,
		perm:   perm.Build(nil, nil),
		fp:     fp,
		linear: linear,
		cfg:    cfg,
		logger: cfg.logger,
	}
	if cfg.diagnostics {
		idx.diag = &diagnostics{}
	}
	return idx, nil
}

// Build is New followed by Fit.
func Build[K model.Key, M model.Model[K]](keys []K, m M, opts ...Option) (*Index[K, M], error) {
	idx, err := New[K, M](m, opts...)
	if err != nil {
		return nil, err
	}
	if err := idx.Fit(keys); err != nil {
		return nil, err
	}
	return idx, nil
}

// Fit builds the permutation and trains the model on keys, discarding any
// previous state. keys[i] is addressed by offset i in later lookups. Fit
// must not run concurrently with lookups.
func (idx *Index[K, M]) Fit(keys []K) error {
	n := len(keys)

	entries := make([]entry[K], n)
	for i, k := range keys {
		entries[i] = entry[K]{key: k, offset: i}
	}
	slices.SortStableFunc(entries, func(a, b entry[K]) bool {
		return a.key < b.key
	})

	offsets := make([]uint64, n)
	sorted := make([]K, n)
	var fingerprints []uint64
	if idx.fp.Enabled() {
		fingerprints = make([]uint64, n)
	}
	for i, e := range entries {
		offsets[i] = uint64(e.offset)
		sorted[i] = e.key
		if fingerprints != nil {
			fingerprints[i] = idx.fp.Fingerprint(uint64(e.key))
		}
	}

	pv := perm.Build(offsets, fingerprints)

	if err := idx.model.Train(sorted); err != nil {
		idx.reset()
		return fmt.Errorf("lsi: train model: %w", err)
	}

	idx.perm = pv
	idx.maxError = idx.measureMaxError(sorted)
	idx.filter = nil
	idx.runs = nil
	idx.runOnes = 0
	if idx.cfg.bloomRate > 0 {
		idx.filter = buildFilter(sorted, idx.cfg.bloomRate)
	}
	if idx.cfg.duplicateRuns {
		idx.runs, idx.runOnes = buildRuns(sorted)
	}

	idx.logger.LogAttrs(context.Background(), slog.LevelDebug, "lsi fit complete",
		slog.String("index", idx.Name()),
		slog.String("model", idx.model.Name()),
		slog.Int("keys", n),
		slog.Int("max_error", idx.maxError),
		slog.Int("offset_bits", pv.OffsetBits()),
		slog.Int("fingerprint_bits", pv.FingerprintBits()),
		slog.Int("bytes", idx.ByteSize()),
	)
	return nil
}

// measureMaxError returns the largest distance between a prediction and
// the rank of the first occurrence of the predicted key. Any rank inside a
// duplicate run is a valid answer, so the first one is the reference.
func (idx *Index[K, M]) measureMaxError(sorted []K) int {
	maxError := 0
	runStart := 0
	for j, k := range sorted {
		if sorted[runStart] != k {
			runStart = j
		}
		pred := idx.model.Predict(k)
		err := pred - runStart
		if err < 0 {
			err = -err
		}
		maxError = max(maxError, err)
	}
	return maxError
}

func (idx *Index[K, M]) reset() {
	idx.perm = perm.Build(nil, nil)
	idx.maxError = 0
	idx.filter = nil
	idx.runs = nil
	idx.runOnes = 0
}

func keyBytes[K model.Key](buf *[8]byte, key K) []byte {
	binary.LittleEndian.PutUint64(buf[:], uint64(key))
	return buf[:]
}

func buildFilter[K model.Key](sorted []K, rate float64) *bloom.BloomFilter {
	filter := bloom.NewWithEstimates(uint(max(len(sorted), 1)), rate)
	var buf [8]byte
	for j, k := range sorted {
		if j > 0 && sorted[j-1] == k {
			continue
		}
		filter.Add(keyBytes(&buf, k))
	}
	return filter
}

// buildRuns marks every sorted position that starts a new key.
func buildRuns[K model.Key](sorted []K) (*rsdic.RSDic, uint64) {
	runs := rsdic.New()
	for j, k := range sorted {
		runs.PushBack(j == 0 || sorted[j-1] != k)
	}
	return runs, runs.Rank(runs.Num(), true)
}

// Len returns the number of indexed keys.
func (idx *Index[K, M]) Len() int { return idx.perm.Len() }

// MaxError returns the largest prediction error observed on the training
// keys.
func (idx *Index[K, M]) MaxError() int { return idx.maxError }

// Model returns the trained model.
func (idx *Index[K, M]) Model() M { return idx.model }

// Perm returns the packed permutation.
func (idx *Index[K, M]) Perm() *perm.Vector { return idx.perm }

// Begin returns a cursor at the smallest key.
func (idx *Index[K, M]) Begin() perm.Cursor { return idx.perm.Begin() }

// End returns the past-the-end cursor, also used as the not-found result.
func (idx *Index[K, M]) End() perm.Cursor { return idx.perm.End() }

// LinearSearch reports whether lookups scan their window linearly.
func (idx *Index[K, M]) LinearSearch() bool { return idx.linear }

func (idx *Index[K, M]) FingerprintBits() int { return idx.fp.Size() }

func (idx *Index[K, M]) ModelByteSize() int { return idx.model.ByteSize() }

func (idx *Index[K, M]) PermVectorByteSize() int { return idx.perm.ByteSize() }

func (idx *Index[K, M]) filterByteSize() int {
	if idx.filter == nil {
		return 0
	}
	return int(idx.filter.Cap()+7) / 8
}

func (idx *Index[K, M]) runsByteSize() int {
	if idx.runs == nil {
		return 0
	}
	return idx.runs.AllocSize()
}

// ByteSize returns the total index size in bytes: the max error word, the
// model, the permutation and the optional filter and run bitvector.
func (idx *Index[K, M]) ByteSize() int {
	return int(unsafe.Sizeof(idx.maxError)) + idx.ModelByteSize() + idx.PermVectorByteSize() +
		idx.filterByteSize() + idx.runsByteSize()
}

// Name identifies the index configuration, e.g. "LSI<RadixSpline<18,16>, 8, true>".
func (idx *Index[K, M]) Name() string {
	return fmt.Sprintf("LSI<%s, %d, %t>", idx.model.Name(), idx.fp.Size(), idx.linear)
}

type memDetailer interface {
	MemDetailed() utils.MemReport
}

// MemDetailed returns a detailed memory usage report for the Index.
func (idx *Index[K, M]) MemDetailed() utils.MemReport {
	var modelReport utils.MemReport
	if md, ok := any(idx.model).(memDetailer); ok {
		modelReport = md.MemDetailed()
	} else {
		modelReport = utils.MemReport{Name: idx.model.Name(), TotalBytes: idx.ModelByteSize()}
	}

	return utils.MemReport{
		Name:       "lsi",
		TotalBytes: idx.ByteSize(),
		Children: []utils.MemReport{
			{Name: "max_error", TotalBytes: int(unsafe.Sizeof(idx.maxError))},
			modelReport,
			idx.perm.MemDetailed(),
			{Name: "bloom_filter", TotalBytes: idx.filterByteSize()},
			{Name: "duplicate_runs", TotalBytes: idx.runsByteSize()},
		},
	}
}

func (idx *Index[K, M]) String() string {
	var sb strings.Builder
	sb.WriteString(idx.Name() + ":\n")
	sb.WriteString(fmt.Sprintf("| keys: %s\n", humanize.Comma(int64(idx.Len()))))
	sb.WriteString(fmt.Sprintf("| maxError: %d\n", idx.maxError))
	sb.WriteString(fmt.Sprintf("| offsetBits: %d\n", idx.perm.OffsetBits()))
	sb.WriteString(fmt.Sprintf("| fingerprintBits: %d\n", idx.perm.FingerprintBits()))
	sb.WriteString(fmt.Sprintf("| size: %s\n", humanize.IBytes(uint64(idx.ByteSize()))))
	return sb.String()
}

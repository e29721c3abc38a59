package lsi

import (
	"math/rand"
	"sync"
	"testing"

	"LearnedIndex/model"

	"github.com/stretchr/testify/require"
)

func TestModeString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "equality", ModeEquality.String())
	require.Equal(t, "lower_bound", ModeLowerBound.String())
	require.Equal(t, "Mode(5)", Mode(5).String())
	require.Equal(t, "binary", SearchBinary.String())
	require.Equal(t, "SearchMode(9)", SearchMode(9).String())
}

func TestLookupModes(t *testing.T) {
	t.Parallel()
	keys := []uint64{40, 10, 30, 10, 20}
	idx, err := Build(keys, model.NewLinear[uint64](), WithFingerprintBits(6))
	require.NoError(t, err)

	c := idx.Lookup(keys, 10, ModeEquality)
	require.Equal(t, 0, c.Pos())
	require.Equal(t, 1, c.Offset())
	require.Equal(t, 3, c.Next().Offset())

	c = idx.Lookup(keys, 25, ModeLowerBound)
	require.Equal(t, 3, c.Pos())
	require.Equal(t, uint64(30), keys[c.Offset()])
	require.True(t, idx.Lookup(keys, 25, ModeEquality).IsEnd())
	require.True(t, idx.Lookup(keys, 41, ModeLowerBound).IsEnd())
	require.Equal(t, 2, idx.End().Distance(c))
}

func TestBloomFilterRejectsAbsentKeys(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))

	keys := make([]uint64, 20_000)
	for i := range keys {
		keys[i] = uint64(2 * i)
	}
	r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	idx, err := Build(keys, model.DefaultRadixSpline[uint64](), WithBloomFilter(0.01), WithDiagnostics())
	require.NoError(t, err)

	for _, k := range keys {
		c := idx.Find(keys, k)
		require.True(t, c.Valid(), "bloom filter rejected present key %d", k)
		require.Equal(t, k, keys[c.Offset()])
	}

	idx.ResetStats()
	const queries = 10_000
	for i := 0; i < queries; i++ {
		require.True(t, idx.Find(keys, uint64(2*r.Intn(len(keys))+1)).IsEnd())
	}
	require.Less(t, idx.Stats().BaseDataAccesses, uint64(queries),
		"most absent keys must be rejected before touching base data")

	// Lower bound never consults the filter.
	c := idx.LowerBound(keys, 3)
	require.Equal(t, uint64(4), keys[c.Offset()])
}

func TestEqualRangeAndCount(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	keys, counts := squaresWithCopies(r, 1_000)
	largest := uint64(999 * 999)

	for _, cfg := range lookupConfigs() {
		t.Run(cfg.name, func(t *testing.T) {
			idx, err := Build(keys, model.DefaultRadixSpline[uint64](), cfg.opts...)
			require.NoError(t, err)

			for k, want := range counts {
				first, last := idx.EqualRange(keys, k)
				require.Equal(t, want, last.Distance(first), "key %d", k)
				require.Equal(t, want, idx.Count(keys, k))
				for c := first; c.Less(last); c = c.Next() {
					require.Equal(t, k, keys[c.Offset()])
				}
			}

			_, last := idx.EqualRange(keys, largest)
			require.True(t, last.IsEnd())

			for _, k := range []uint64{2, 3, 5, largest + 1} {
				first, last := idx.EqualRange(keys, k)
				require.True(t, first.IsEnd())
				require.True(t, last.IsEnd())
				require.Zero(t, idx.Count(keys, k))
			}
		})
	}
}

func TestEqualRangeWithRunsSkipsBaseData(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	keys, counts := squaresWithCopies(r, 500)

	idx, err := Build(keys, model.DefaultRadixSpline[uint64](), WithDuplicateRuns(), WithDiagnostics())
	require.NoError(t, err)

	for k := range counts {
		idx.ResetStats()
		idx.Find(keys, k)
		find := idx.Stats()

		idx.ResetStats()
		idx.EqualRange(keys, k)
		require.Equal(t, find, idx.Stats(), "key %d", k)
	}
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	keys := shuffledRange(r, 20_000, 119_999)

	t.Run("disabled", func(t *testing.T) {
		idx, err := Build(keys, model.DefaultRadixSpline[uint64]())
		require.NoError(t, err)
		idx.Find(keys, 20_050)
		require.Equal(t, Stats{}, idx.Stats())
		idx.ResetStats()
	})

	// With an exact model the window holds one rank: one search access and
	// one final equality check.
	for _, cfg := range []namedOptions{
		{"binary", []Option{WithSearchMode(SearchBinary)}},
		{"linear", []Option{WithSearchMode(SearchLinear)}},
		{"fp16", []Option{WithFingerprintBits(16)}},
	} {
		t.Run(cfg.name, func(t *testing.T) {
			idx, err := Build(keys, model.DefaultRadixSpline[uint64](), append(cfg.opts, WithDiagnostics())...)
			require.NoError(t, err)

			idx.Find(keys, 20_050)
			require.Equal(t, uint64(2), idx.BaseDataAccesses())
			require.Zero(t, idx.FalsePositiveAccesses())

			idx.ResetStats()
			require.Equal(t, Stats{}, idx.Stats())
		})
	}

	t.Run("lower_bound_beyond_max", func(t *testing.T) {
		idx, err := Build(keys, model.DefaultRadixSpline[uint64](), WithSearchMode(SearchLinear), WithDiagnostics())
		require.NoError(t, err)
		require.True(t, idx.LowerBound(keys, 200_000).IsEnd())
		stats := idx.Stats()
		require.Equal(t, uint64(1), stats.BaseDataAccesses)
		require.Equal(t, uint64(1), stats.FalsePositiveAccesses)
	})
}

func TestConcurrentLookups(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))
	keys, _ := squaresWithCopies(r, 5_000)

	idx, err := Build(keys, model.DefaultRadixSpline[uint64](), WithFingerprintBits(8), WithDiagnostics())
	require.NoError(t, err)

	probe := func() bool {
		for _, k := range keys {
			if c := idx.Find(keys, k); !c.Valid() || keys[c.Offset()] != k {
				return false
			}
			if c := idx.LowerBound(keys, k+1); !c.IsEnd() && keys[c.Offset()] <= k {
				return false
			}
		}
		return true
	}

	require.True(t, probe())
	single := idx.Stats()
	idx.ResetStats()

	const workers = 8
	var wg sync.WaitGroup
	results := make([]bool, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w] = probe()
		}(w)
	}
	wg.Wait()

	for w, ok := range results {
		require.True(t, ok, "worker %d saw a wrong result", w)
	}
	stats := idx.Stats()
	require.Equal(t, workers*single.BaseDataAccesses, stats.BaseDataAccesses)
	require.Equal(t, workers*single.FalsePositiveAccesses, stats.FalsePositiveAccesses)
}

func TestSmallKeyTypes(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))

	keys := make([]uint16, 5_000)
	for i := range keys {
		keys[i] = uint16(r.Intn(1_000))
	}
	idx, err := Build(keys, model.DefaultRadixSpline[uint16](), WithFingerprintBits(5), WithDuplicateRuns())
	require.NoError(t, err)

	want := make(map[uint16]int)
	for _, k := range keys {
		want[k]++
	}
	for k := 0; k < 1_100; k++ {
		require.Equal(t, want[uint16(k)], idx.Count(keys, uint16(k)), "key %d", k)
	}
	require.Equal(t, 13, idx.Perm().OffsetBits())
}

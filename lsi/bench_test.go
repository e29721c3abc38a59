package lsi

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"LearnedIndex/model"

	"github.com/dgryski/go-boomphf"
	iradix "github.com/hashicorp/go-immutable-radix"
)

const benchKeys = 1 << 20

func generateBenchKeys(n int) []uint64 {
	r := rand.New(rand.NewSource(42))
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = r.Uint64() >> 16
	}
	return keys
}

func bigEndianKey(k uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], k)
	return b[:]
}

func BenchmarkIndex_Find(b *testing.B) {
	for _, fp := range []int{0, 4, 8, 16} {
		b.Run(fmt.Sprintf("fp%d", fp), func(b *testing.B) {
			b.StopTimer()
			keys := generateBenchKeys(benchKeys)
			idx, err := Build(keys, model.DefaultRadixSpline[uint64](), WithFingerprintBits(fp))
			if err != nil {
				b.Fatal(err)
			}
			mask := len(keys) - 1
			b.ReportMetric(float64(idx.ByteSize())*8/float64(len(keys)), "bits/key")
			b.StartTimer()

			for i := 0; i < b.N; i++ {
				idx.Find(keys, keys[i&mask])
			}
		})
	}
}

func BenchmarkIndex_LowerBound(b *testing.B) {
	b.StopTimer()
	keys := generateBenchKeys(benchKeys)
	idx, err := Build(keys, model.DefaultRadixSpline[uint64]())
	if err != nil {
		b.Fatal(err)
	}
	r := rand.New(rand.NewSource(7))
	queries := make([]uint64, 1<<16)
	for i := range queries {
		queries[i] = r.Uint64() >> 16
	}
	mask := len(queries) - 1
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		idx.LowerBound(keys, queries[i&mask])
	}
}

func BenchmarkIndex_Fit(b *testing.B) {
	b.StopTimer()
	keys := generateBenchKeys(benchKeys)
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Build(keys, model.DefaultRadixSpline[uint64](), WithFingerprintBits(8)); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_SortedSlice_LowerBound(b *testing.B) {
	b.StopTimer()
	keys := generateBenchKeys(benchKeys)
	sortUint64s(keys)
	mask := len(keys) - 1
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		q := keys[i&mask]
		sort.Search(len(keys), func(j int) bool { return keys[j] >= q })
	}
}

func Benchmark_iradix_LowerBound(b *testing.B) {
	b.StopTimer()
	keys := generateBenchKeys(benchKeys)
	txn := iradix.New().Txn()
	for i, k := range keys {
		txn.Insert(bigEndianKey(k), i)
	}
	tree := txn.Commit()
	mask := len(keys) - 1
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		it := tree.Root().Iterator()
		it.SeekLowerBound(bigEndianKey(keys[i&mask]))
		it.Next()
	}
}

func Benchmark_boomphf_Find(b *testing.B) {
	b.StopTimer()
	keys := generateBenchKeys(benchKeys)
	distinct := make(map[uint64]struct{}, len(keys))
	unique := keys[:0:0]
	for _, k := range keys {
		if _, ok := distinct[k]; !ok {
			distinct[k] = struct{}{}
			unique = append(unique, k)
		}
	}
	h := boomphf.New(2.0, unique)
	offsets := make([]int, len(unique))
	for i, k := range unique {
		offsets[h.Query(k)-1] = i
	}
	mask := len(keys) - 1
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		k := keys[i&mask]
		_ = unique[offsets[h.Query(k)-1]] == k
	}
}

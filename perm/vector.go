// Package perm stores the permutation of a learned secondary index: for
// every rank in sorted key order, the offset of that key in the original
// unsorted data, optionally followed by a fingerprint of the key.
package perm

import (
	"fmt"
	"strings"
	"unsafe"

	"LearnedIndex/bits"
	"LearnedIndex/errutil"
	"LearnedIndex/utils"

	"golang.org/x/exp/slices"
)

// Value is a single decoded entry of a Vector.
type Value struct {
	Offset      uint64
	Fingerprint uint64
}

// Vector is an immutable bit-packed permutation. Offsets and fingerprints
// are two independent streams, each at its own minimal width, stored back
// to back in one word buffer.
type Vector struct {
	data         []uint64
	offsets      bits.PackedVector
	fingerprints bits.PackedVector
	size         int
}

// Build packs offsets[i] (and fingerprints[i] when fingerprints is non-nil)
// for every sorted position i. The inputs are not retained.
func Build(offsets []uint64, fingerprints []uint64) *Vector {
	errutil.BugOn(fingerprints != nil && len(fingerprints) != len(offsets),
		"fingerprint count %d does not match offset count %d", len(fingerprints), len(offsets))

	n := len(offsets)
	offsetBits := bits.MaxBitWidth(offsets)
	fingerprintBits := 0
	if fingerprints != nil {
		fingerprintBits = bits.MaxBitWidth(fingerprints)
	}

	offsetWords := bits.PackedWords(n, offsetBits)
	data := make([]uint64, 0, offsetWords+bits.PackedWords(n, fingerprintBits))
	data = bits.AppendPacked(data, offsets, offsetBits)
	data = bits.AppendPacked(data, fingerprints, fingerprintBits)

	return &Vector{
		data:         data,
		offsets:      bits.PackedVectorView(data[:offsetWords], n, offsetBits),
		fingerprints: bits.PackedVectorView(data[offsetWords:], n, fingerprintBits),
		size:         n,
	}
}

// Get decodes the entry at sorted position i, i in [0, Len()).
func (v *Vector) Get(i int) Value {
	return Value{
		Offset:      v.offsets.Get(i),
		Fingerprint: v.fingerprints.Get(i),
	}
}

// Offset returns the original data offset stored at sorted position i.
func (v *Vector) Offset(i int) uint64 {
	return v.offsets.Get(i)
}

// Fingerprint returns the fingerprint stored at sorted position i, or 0
// when the vector carries no fingerprints.
func (v *Vector) Fingerprint(i int) uint64 {
	return v.fingerprints.Get(i)
}

func (v *Vector) Len() int {
	if v == nil {
		return 0
	}
	return v.size
}

func (v *Vector) OffsetBits() int      { return v.offsets.BitWidth() }
func (v *Vector) FingerprintBits() int { return v.fingerprints.BitWidth() }

// Bytes returns the packed representation as little-endian bytes.
func (v *Vector) Bytes() []byte {
	return bits.AppendBytes(make([]byte, 0, len(v.data)*8), v.data)
}

// Equal reports whether both vectors hold the same packed bytes and size.
func (v *Vector) Equal(other *Vector) bool {
	if v == nil || other == nil {
		return v.Len() == other.Len()
	}
	return v.size == other.size &&
		v.offsets.BitWidth() == other.offsets.BitWidth() &&
		v.fingerprints.BitWidth() == other.fingerprints.BitWidth() &&
		slices.Equal(v.data, other.data)
}

// ByteSize returns the resident size estimate in bytes.
func (v *Vector) ByteSize() int {
	if v == nil {
		return 0
	}
	return int(unsafe.Sizeof(*v)) + len(v.data)*8
}

// MemDetailed returns a detailed memory usage report for the Vector.
func (v *Vector) MemDetailed() utils.MemReport {
	if v == nil {
		return utils.MemReport{Name: "perm_vector", TotalBytes: 0}
	}
	return utils.MemReport{
		Name:       "perm_vector",
		TotalBytes: v.ByteSize(),
		Children: []utils.MemReport{
			{Name: "header", TotalBytes: int(unsafe.Sizeof(*v))},
			{Name: "offsets", TotalBytes: v.offsets.ByteSize()},
			{Name: "fingerprints", TotalBytes: v.fingerprints.ByteSize()},
		},
	}
}

func (v *Vector) String() string {
	var sb strings.Builder
	sb.WriteString("PermVector:\n")
	sb.WriteString(fmt.Sprintf("| size: %d\n", v.Len()))
	sb.WriteString(fmt.Sprintf("| offsetBits: %d\n", v.OffsetBits()))
	sb.WriteString(fmt.Sprintf("| fingerprintBits: %d\n", v.FingerprintBits()))
	sb.WriteString(fmt.Sprintf("| words: %d\n", len(v.data)))
	return sb.String()
}

// Begin returns a cursor at the first sorted position.
func (v *Vector) Begin() Cursor { return Cursor{vec: v, pos: 0} }

// End returns the past-the-end cursor.
func (v *Vector) End() Cursor { return Cursor{vec: v, pos: v.Len()} }

// At returns a cursor at sorted position pos, pos in [0, Len()].
func (v *Vector) At(pos int) Cursor {
	errutil.BugOn(pos < 0 || pos > v.Len(), "cursor position %d out of range [0, %d]", pos, v.Len())
	return Cursor{vec: v, pos: pos}
}

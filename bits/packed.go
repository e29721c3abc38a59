package bits

import (
	"encoding/binary"

	"LearnedIndex/errutil"
)

// MaxBitWidth returns the number of bits needed to store every value in
// values, i.e. ceil(log2(max+1)). It is 0 for an empty slice or all zeros.
func MaxBitWidth(values []uint64) int {
	var m uint64
	for _, v := range values {
		m |= v
	}
	return MostSignificantBit(m) + 1
}

// PackedWords returns the number of uint64 words AppendPacked uses for n
// values of the given width.
func PackedWords(n int, bitWidth int) int {
	return (n*bitWidth + 63) / 64
}

// AppendPacked packs values at exactly bitWidth bits each and appends the
// resulting words to dst. Values wider than bitWidth are truncated.
func AppendPacked(dst []uint64, values []uint64, bitWidth int) []uint64 {
	errutil.BugOn(bitWidth < 0 || bitWidth > 64, "bit width %d out of range", bitWidth)
	if len(values) == 0 || bitWidth == 0 {
		return dst
	}

	base := len(dst)
	dst = append(dst, make([]uint64, PackedWords(len(values), bitWidth))...)
	packed := dst[base:]
	mask := lowMask(bitWidth)

	for i, val := range values {
		bitPos := i * bitWidth
		wordIdx := bitPos / 64
		bitOffset := uint(bitPos % 64)
		maskedVal := val & mask

		packed[wordIdx] |= maskedVal << bitOffset

		// Spill the high bits into the next word.
		if bitsAvailable := 64 - int(bitOffset); bitsAvailable < bitWidth {
			packed[wordIdx+1] |= maskedVal >> uint(bitsAvailable)
		}
	}

	return dst
}

// Unpack reads the index-th value of bitWidth bits from packed.
func Unpack(packed []uint64, index int, bitWidth int) uint64 {
	if bitWidth == 0 {
		return 0
	}

	bitPos := index * bitWidth
	wordIdx := bitPos / 64
	bitOffset := uint(bitPos % 64)

	val := packed[wordIdx] >> bitOffset
	if bitsAvailable := 64 - int(bitOffset); bitsAvailable < bitWidth {
		val |= packed[wordIdx+1] << uint(bitsAvailable)
	}

	return val & lowMask(bitWidth)
}

func lowMask(bitWidth int) uint64 {
	if bitWidth >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<uint(bitWidth) - 1
}

// PackedVector is an immutable array of n unsigned integers stored at a
// fixed bit width with O(1) random access.
type PackedVector struct {
	words    []uint64
	bitWidth int
	n        int
}

// NewPackedVector packs values at their minimal common bit width.
func NewPackedVector(values []uint64) PackedVector {
	width := MaxBitWidth(values)
	return PackedVector{
		words:    AppendPacked(nil, values, width),
		bitWidth: width,
		n:        len(values),
	}
}

// PackedVectorView wraps already packed words without copying them.
func PackedVectorView(words []uint64, n int, bitWidth int) PackedVector {
	errutil.BugOn(len(words) < PackedWords(n, bitWidth),
		"packed view needs %d words, got %d", PackedWords(n, bitWidth), len(words))
	return PackedVector{words: words, bitWidth: bitWidth, n: n}
}

func (pv PackedVector) Get(i int) uint64 {
	errutil.BugOn(i < 0 || i >= pv.n, "packed index %d out of range [0, %d)", i, pv.n)
	return Unpack(pv.words, i, pv.bitWidth)
}

func (pv PackedVector) Len() int      { return pv.n }
func (pv PackedVector) BitWidth() int { return pv.bitWidth }
func (pv PackedVector) Words() []uint64 {
	return pv.words
}

// ByteSize returns the size of the packed payload in bytes.
func (pv PackedVector) ByteSize() int {
	return len(pv.words) * 8
}

// AppendBytes appends the little-endian encoding of words to dst.
func AppendBytes(dst []byte, words []uint64) []byte {
	for _, w := range words {
		dst = binary.LittleEndian.AppendUint64(dst, w)
	}
	return dst
}

// Package fingerprint derives short hash tags from keys. A tag mismatch
// proves two keys differ; a match only says they may be equal.
package fingerprint

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"
)

// MaxSize is the widest supported fingerprint in bits.
const MaxSize = 63

var ErrTooWide = errors.New("fingerprint: size out of range")

// Fingerprinter maps keys to size-bit tags. The zero value has size 0 and
// disables fingerprinting.
type Fingerprinter struct {
	size int
	mask uint64
	seed uint64
}

// New returns a Fingerprinter producing size-bit tags, size in [0, MaxSize].
func New(size int) (Fingerprinter, error) {
	return NewSeeded(size, 0)
}

// NewSeeded is New with an explicit hash seed.
func NewSeeded(size int, seed uint64) (Fingerprinter, error) {
	if size < 0 || size > MaxSize {
		return Fingerprinter{}, fmt.Errorf("%w: %d bits, supported 0..%d", ErrTooWide, size, MaxSize)
	}
	return Fingerprinter{
		size: size,
		mask: uint64(1)<<uint(size) - 1,
		seed: seed,
	}, nil
}

func (f Fingerprinter) Size() int     { return f.size }
func (f Fingerprinter) Enabled() bool { return f.size > 0 }

// Fingerprint returns hash(key) & (1<<size - 1).
func (f Fingerprinter) Fingerprint(key uint64) uint64 {
	if f.size == 0 {
		return 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], key)
	return xxh3.HashSeed(buf[:], f.seed) & f.mask
}

// Test reports whether stored could be the fingerprint of key.
func (f Fingerprinter) Test(key uint64, stored uint64) bool {
	return f.Fingerprint(key) == stored
}

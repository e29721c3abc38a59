package bits

import "math/bits"

// MostSignificantBit returns the index of the most significant bit.
func MostSignificantBit(x uint64) int {
	if x == 0 {
		return -1
	}
	return 63 - bits.LeadingZeros64(x)
}

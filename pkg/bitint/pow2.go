/*
Package bitint provides the power-of-two helpers used to size FFT frames.

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two are preserved:

	8 -> 8-1 = 0b0111 -> bits.Len = 3 -> 1<<3 = 8
	9 -> 9-1 = 0b1000 -> bits.Len = 4 -> 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size. Zero and negative
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. Powers of two
// have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// SPDX-License-Identifier: MIT
package pcm

// Normalize maps fixed-point samples onto floats by dividing by FullScale.
// Samples outside the 24-bit range are passed through and land outside
// [-1, 1]; consumers clamp at render time.
func Normalize(samples []int32) []float32 {
	out := make([]float32, len(samples))
	NormalizeInto(out, samples)
	return out
}

// NormalizeInto writes the normalized form of src into dst. Only
// min(len(dst), len(src)) samples are converted.
func NormalizeInto(dst []float32, src []int32) {
	n := min(len(dst), len(src))
	for i := range n {
		dst[i] = float32(src[i]) / FullScale
	}
}

// SPDX-License-Identifier: MIT
package utils

import "math"

// FullScale24 is the largest magnitude of a 24-bit signed sample.
const FullScale24 = 1<<23 - 1

// GenerateSineWave returns a full-scale 24-bit sine of the given frequency.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	return GenerateSineWaveAt(size, sampleRate, frequency, 1.0, 0)
}

// GenerateSineWaveAt returns size samples of a sine at the given amplitude
// (fraction of the 24-bit full scale) starting at sample index offset, so that
// consecutive calls produce a phase-continuous signal.
func GenerateSineWaveAt(size int, sampleRate, frequency, amplitude float64, offset int64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(offset+int64(i)) / sampleRate
		buffer[i] = int32(math.Round(math.Sin(2*math.Pi*frequency*t) * amplitude * FullScale24))
	}
	return buffer
}

// FindPeakBin returns the index of the largest value in magnitudes[startBin:endBin+1].
// Ties resolve to the lowest index. Out-of-range bounds are clamped; an empty
// slice or an empty range returns startBin clamped to zero.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	if startBin > endBin {
		return startBin
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}

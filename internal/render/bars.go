// SPDX-License-Identifier: MIT
/*
Package render turns analysis results into draw commands.

The reference layout targets a 128x64 panel: the frequency readout sits in
the top rows and 64 one-pixel bars, two pixels apart, grow upwards from
y=60. Bars never rise above y=20 so they cannot collide with the readout.
*/
package render

import (
	"math"
	"math/cmplx"
)

// Layout holds the fixed geometry of the spectrum view.
type Layout struct {
	Bands     int // Number of displayed bands (one per low-order bin).
	BandPitch int // Horizontal distance between bars in pixels.
	MaxHeight int // Height of the tallest bar (H_max).
	BaseY     int // Row the bars grow up from.
	MinY      int // Highest row a bar may reach.
	MaxX      int // Right-most drawable column.
}

// DefaultLayout is the 128x64 panel layout.
var DefaultLayout = Layout{
	Bands:     64,
	BandPitch: 2,
	MaxHeight: 40,
	BaseY:     60,
	MinY:      20,
	MaxX:      127,
}

// Heights maps the first Bands bins of frame to bar heights. Bins at or above
// the Nyquist index len(frame)/2 count as zero. Heights are scaled against
// the strongest displayed band, so that band is exactly MaxHeight tall, and
// capped so that BaseY-height never goes above MinY.
func (l Layout) Heights(frame []complex128) []int {
	heights := make([]int, max(l.Bands, 0))
	l.HeightsInto(heights, frame)
	return heights
}

// HeightsInto is the allocation-free form of Heights. len(dst) bands are
// computed.
func (l Layout) HeightsInto(dst []int, frame []complex128) {
	half := len(frame) / 2

	var maxMagnitude float64
	for i := range dst {
		if m := bandMagnitude(frame, half, i); m > maxMagnitude {
			maxMagnitude = m
		}
	}

	limit := l.heightLimit()
	for i := range dst {
		if maxMagnitude <= 0 {
			dst[i] = 0
			continue
		}

		var h float64
		if math.IsInf(maxMagnitude, 1) {
			// Only infinite bands reach full height.
			if math.IsInf(bandMagnitude(frame, half, i), 1) {
				h = float64(l.MaxHeight)
			}
		} else {
			h = math.Round(bandMagnitude(frame, half, i) / maxMagnitude * float64(l.MaxHeight))
		}

		dst[i] = clampInt(int(h), 0, limit)
	}
}

// heightLimit is the tallest bar that fits between BaseY and MinY.
func (l Layout) heightLimit() int {
	return max(0, min(l.MaxHeight, l.BaseY-l.MinY))
}

// BarX returns the column of bar i.
func (l Layout) BarX(i int) int {
	return min(l.MaxX, i*l.BandPitch)
}

// BarTop returns the top row of a bar of the given height.
func (l Layout) BarTop(height int) int {
	return max(l.MinY, l.BaseY-height)
}

// bandMagnitude returns |frame[i]| below the Nyquist index and 0 otherwise.
// NaN magnitudes count as silence.
func bandMagnitude(frame []complex128, half, i int) float64 {
	if i >= half {
		return 0
	}
	m := cmplx.Abs(frame[i])
	if math.IsNaN(m) {
		return 0
	}
	return m
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

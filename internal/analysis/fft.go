// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"

	applog "micscope/internal/log"
	"micscope/pkg/bitint"
	"micscope/pkg/utils"
)

// DefaultGuardBins is the number of low bins skipped by the dominant
// frequency search (DC offset and sub-audible rumble).
const DefaultGuardBins = 4

// Result is the outcome of one analysis call.
//
// Spectrum aliases the analyzer's workspace and is only valid until the next
// call to Analyze.
type Result struct {
	Spectrum          []complex128 // Forward DFT, len == frame length N.
	DominantBin       int          // Index of the strongest bin in [guard, N/2), or 0.
	DominantFrequency float64      // DominantBin * BinWidth, in Hz.
	BinWidth          float64      // Frequency resolution sampleRate / N, in Hz.
}

// Pre-allocated buffers, grown on demand when the frame length changes.
type fftWorkspace struct {
	input     []complex128 // Windowed real input with zero imaginary part.
	spectrum  []complex128 // Transform output.
	magnitude []float64    // |spectrum| for the first N/2 bins.
}

// SpectralAnalyzer computes the spectrum of a mono frame of normalized
// samples and locates its dominant frequency. Frames may have any length.
// It is not safe for concurrent use; the capture loop is its only caller.
type SpectralAnalyzer struct {
	sampleRate float64
	guardBins  int
	windowType WindowFunc
	padPow2    bool
	backend    Backend
	transform  Transformer
	windows    map[int][]float64
	workspace  fftWorkspace
}

// Option configures a SpectralAnalyzer.
type Option func(*SpectralAnalyzer)

// WithBackend selects the transform implementation.
func WithBackend(b Backend) Option {
	return func(a *SpectralAnalyzer) { a.backend = b }
}

// WithWindow applies a taper to each frame before the transform.
func WithWindow(w WindowFunc) Option {
	return func(a *SpectralAnalyzer) { a.windowType = w }
}

// WithGuardBins overrides the number of low bins excluded from the peak search.
func WithGuardBins(n int) Option {
	return func(a *SpectralAnalyzer) { a.guardBins = n }
}

// WithPowerOfTwoPadding zero-pads each frame to the next power of two.
// Bin width shrinks accordingly; reported frequencies stay in Hz.
func WithPowerOfTwoPadding(enabled bool) Option {
	return func(a *SpectralAnalyzer) { a.padPow2 = enabled }
}

// NewSpectralAnalyzer creates an analyzer for frames captured at sampleRate Hz.
func NewSpectralAnalyzer(sampleRate float64, opts ...Option) (*SpectralAnalyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	a := &SpectralAnalyzer{
		sampleRate: sampleRate,
		guardBins:  DefaultGuardBins,
		windowType: NoWindow,
		backend:    Gonum,
		windows:    make(map[int][]float64),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.guardBins < 0 {
		return nil, fmt.Errorf("guard bins must not be negative, got %d", a.guardBins)
	}

	transform, err := newTransformer(a.backend)
	if err != nil {
		return nil, err
	}
	a.transform = transform

	applog.Infof("Analysis: Initializing SpectralAnalyzer (SampleRate: %.1f Hz, Backend: %v, Window: %v, Guard: %d bins, Pad: %t)",
		sampleRate, a.backend, a.windowType, a.guardBins, a.padPow2)

	return a, nil
}

// Analyze transforms samples and finds the strongest bin above the guard band.
// When the searchable range [guard, N/2) is empty the dominant bin is 0 and
// the dominant frequency 0 Hz.
func (a *SpectralAnalyzer) Analyze(samples []float32) Result {
	n := len(samples)
	if n == 0 {
		return Result{}
	}
	if a.padPow2 && !bitint.IsPowerOfTwo(n) {
		n = bitint.NextPowerOfTwo(n)
	}
	a.ensureWorkspace(n)

	// --- 1. Prepare Input & Windowing ---
	coeffs := a.window(len(samples))
	input := a.workspace.input[:n]
	for i := range input {
		if i < len(samples) {
			input[i] = complex(float64(samples[i])*coeffs[i], 0)
		} else {
			input[i] = 0 // Zero-padding.
		}
	}

	// --- 2. Perform FFT ---
	spectrum := a.transform.Transform(a.workspace.spectrum[:n], input)

	// --- 3. Locate the dominant bin ---
	half := n / 2
	magnitude := a.workspace.magnitude[:half]
	for i := range magnitude {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}

	binWidth := a.sampleRate / float64(n)
	dominant := 0
	if half > a.guardBins {
		dominant = utils.FindPeakBin(magnitude, a.guardBins, half-1)
	}

	return Result{
		Spectrum:          spectrum,
		DominantBin:       dominant,
		DominantFrequency: float64(dominant) * binWidth,
		BinWidth:          binWidth,
	}
}

// FrequencyForBin returns the center frequency (Hz) of bin binIndex in a
// frame of n points.
func (a *SpectralAnalyzer) FrequencyForBin(binIndex, n int) float64 {
	if n <= 0 || binIndex < 0 || binIndex >= n {
		return 0.0
	}
	return float64(binIndex) * (a.sampleRate / float64(n))
}

// SampleRate returns the configured sample rate (Hz).
func (a *SpectralAnalyzer) SampleRate() float64 {
	return a.sampleRate
}

// GuardBins returns the number of bins excluded from the peak search.
func (a *SpectralAnalyzer) GuardBins() int {
	return a.guardBins
}

func (a *SpectralAnalyzer) ensureWorkspace(n int) {
	if cap(a.workspace.input) >= n {
		return
	}
	a.workspace = fftWorkspace{
		input:     make([]complex128, n),
		spectrum:  make([]complex128, n),
		magnitude: make([]float64, n/2),
	}
}

// window returns cached coefficients for a frame of n samples.
func (a *SpectralAnalyzer) window(n int) []float64 {
	coeffs, ok := a.windows[n]
	if !ok {
		coeffs = windowCoefficients(n, a.windowType)
		a.windows[n] = coeffs
	}
	return coeffs
}

// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Backend selects the discrete Fourier transform implementation.
type Backend int

const (
	// Gonum uses gonum's mixed-radix complex FFT (FFTPACK port). Any N.
	Gonum Backend = iota
	// Bluestein uses go-dsp, which runs radix-2 for powers of two and
	// Bluestein's chirp-z algorithm otherwise. Any N.
	Bluestein
)

func (b Backend) String() string {
	switch b {
	case Gonum:
		return "gonum"
	case Bluestein:
		return "bluestein"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend converts a backend name (case-insensitive) to a Backend.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gonum", "fftpack":
		return Gonum, nil
	case "bluestein", "go-dsp", "godsp":
		return Bluestein, nil
	default:
		return Gonum, fmt.Errorf("unknown FFT backend name: '%s'", name)
	}
}

// Transformer computes a forward DFT. Implementations write len(seq)
// coefficients into dst, which must have the same length, and return it.
type Transformer interface {
	Transform(dst, seq []complex128) []complex128
}

func newTransformer(b Backend) (Transformer, error) {
	switch b {
	case Gonum:
		return &gonumTransformer{plans: make(map[int]*fourier.CmplxFFT)}, nil
	case Bluestein:
		return goDSPTransformer{}, nil
	default:
		return nil, fmt.Errorf("unsupported FFT backend %v", b)
	}
}

// gonumTransformer keeps one plan per frame length; capture windows rarely
// change size, so the map stays tiny.
type gonumTransformer struct {
	plans map[int]*fourier.CmplxFFT
}

func (g *gonumTransformer) Transform(dst, seq []complex128) []complex128 {
	plan, ok := g.plans[len(seq)]
	if !ok {
		plan = fourier.NewCmplxFFT(len(seq))
		g.plans[len(seq)] = plan
	}
	return plan.Coefficients(dst, seq)
}

// goDSPTransformer delegates to go-dsp, which caches its own twiddle factors.
type goDSPTransformer struct{}

func (goDSPTransformer) Transform(dst, seq []complex128) []complex128 {
	copy(dst, fft.FFT(seq))
	return dst
}

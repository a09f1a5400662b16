// SPDX-License-Identifier: MIT
package pcm

import (
	"math"
	"sort"
	"testing"
)

func TestNormalizeKnownValues(t *testing.T) {
	got := Normalize([]int32{0, MaxSample, -MaxSample, MaxSample / 2, 1 << 24})
	want := []float32{0, 1, -1, 0.5, 2}

	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Normalize()[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestNormalizeMonotonic(t *testing.T) {
	samples := []int32{MinSample, -1 << 20, -1000, -1, 0, 1, 1000, 1 << 20, MaxSample}
	if !sort.SliceIsSorted(samples, func(i, j int) bool { return samples[i] < samples[j] }) {
		t.Fatal("test samples must be increasing")
	}

	out := Normalize(samples)
	for i := 1; i < len(out); i++ {
		if !(out[i-1] < out[i]) {
			t.Errorf("Normalize not monotonic: out[%d]=%g, out[%d]=%g", i-1, out[i-1], i, out[i])
		}
	}
}

func TestNormalizeIsPure(t *testing.T) {
	samples := []int32{5, -5, 123456}
	a := Normalize(samples)
	b := Normalize(samples)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("Normalize not deterministic at %d: %g != %g", i, a[i], b[i])
		}
	}
	if samples[0] != 5 || samples[1] != -5 || samples[2] != 123456 {
		t.Error("Normalize modified its input")
	}
}

func TestNormalizeIntoShortDestination(t *testing.T) {
	dst := make([]float32, 2)
	NormalizeInto(dst, []int32{MaxSample, MaxSample, MaxSample})
	if dst[0] != 1 || dst[1] != 1 {
		t.Errorf("NormalizeInto() = %v, want [1 1]", dst)
	}
}

func TestNormalizeIntoNoAllocsHotPath(t *testing.T) {
	src := make([]int32, 4800)
	dst := make([]float32, 4800)

	allocs := testing.AllocsPerRun(100, func() {
		NormalizeInto(dst, src)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in NormalizeInto, got %.1f", allocs)
	}
}

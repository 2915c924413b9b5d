package fft

import (
	"math"
	"testing"
)

func TestDCCenteringIndexSequence(t *testing.T) {
	const n = 8
	want := []int{4, 5, 6, 7, 0, 1, 2, 3}
	for i := 0; i < n; i++ {
		k := i ^ (n >> 1)
		if k != want[i] {
			t.Errorf("i=%d: k = %d, want %d", i, k, want[i])
		}
	}
}

func TestHannWindowEndpoints(t *testing.T) {
	w := generateWindow(8, Hann)
	if w[0] != 0 {
		t.Errorf("w[0] = %v, want 0", w[0])
	}
	// N-1 denominator means the last sample is also ~0, not ~0.146 as
	// the periodic (N denominator) variant would give.
	if math.Abs(float64(w[7])) > 1e-6 {
		t.Errorf("w[N-1] = %v, want ~0", w[7])
	}
}

func TestPowerSpectrumDCBinIsBrightestForConstantInput(t *testing.T) {
	const n = 16
	plan := NewPlan(n, Rectangular)
	input := make([]complex64, n)
	for i := range input {
		input[i] = complex(1, 0)
	}
	out := make([]float32, n)
	plan.PowerSpectrum(input, out)

	dcIndex := n >> 1 // i XOR (n>>1) == 0 at i == n>>1
	maxIdx := 0
	for i, v := range out {
		if v > out[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx != dcIndex {
		t.Errorf("brightest bin = %d, want DC bin %d", maxIdx, dcIndex)
	}
}

func TestPowerSpectrumClampsNearZero(t *testing.T) {
	const n = 8
	plan := NewPlan(n, Hann)
	input := make([]complex64, n) // all zero
	out := make([]float32, n)
	plan.PowerSpectrum(input, out)

	want := float32(math.Log2(1e-20) * (10 / math.Log2(10)))
	for i, v := range out {
		if math.Abs(float64(v-want)) > 1e-3 {
			t.Errorf("out[%d] = %v, want ~%v", i, v, want)
		}
	}
}

func TestComputeShiftMatchesPowerSpectrumOrdering(t *testing.T) {
	const n = 8
	plan := NewPlan(n, Rectangular)
	input := make([]complex64, n)
	input[0] = 1

	shifted := plan.Compute(input, true)
	unshifted := plan.Compute(input, false)
	for i := 0; i < n; i++ {
		k := i ^ (n >> 1)
		if shifted[i] != unshifted[k] {
			t.Errorf("shifted[%d] = %v, want unshifted[%d] = %v", i, shifted[i], k, unshifted[k])
		}
	}
}

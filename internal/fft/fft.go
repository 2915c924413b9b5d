// Package fft computes power spectra and generic complex spectra over
// fixed-size windows of I/Q samples. Plan creation is serialized by a
// process-wide mutex so the FFT backend can be swapped for one whose
// planner is not thread-safe; execution on distinct plans is
// concurrent and lock-free.
package fft

import (
	"math"
	"sync"

	dspwindow "github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// WindowKind selects the window function applied before transforming.
type WindowKind int

const (
	Hann WindowKind = iota
	Hamming
	Blackman
	Rectangular
)

// planMu serializes plan construction.
var planMu sync.Mutex

// Plan holds a reusable FFT of a fixed size and its window coefficients.
type Plan struct {
	size   int
	window []float32
	cfft   *fourier.CmplxFFT
}

// NewPlan builds a Plan for the given transform size and window kind.
func NewPlan(size int, kind WindowKind) *Plan {
	planMu.Lock()
	cfft := fourier.NewCmplxFFT(size)
	planMu.Unlock()

	return &Plan{
		size:   size,
		window: generateWindow(size, kind),
		cfft:   cfft,
	}
}

// Size returns the transform length this plan was built for.
func (p *Plan) Size() int { return p.size }

// generateWindow builds the window coefficients. Hann is computed
// directly with the symmetric (N-1) denominator, not go-dsp's periodic
// N variant; the other families come from go-dsp.
func generateWindow(n int, kind WindowKind) []float32 {
	w := make([]float32, n)
	switch kind {
	case Hann:
		if n == 1 {
			w[0] = 1
			return w
		}
		for i := 0; i < n; i++ {
			w[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1))))
		}
	case Hamming:
		coeffs := dspwindow.Hamming(n)
		for i, c := range coeffs {
			w[i] = float32(c)
		}
	case Blackman:
		coeffs := dspwindow.Blackman(n)
		for i, c := range coeffs {
			w[i] = float32(c)
		}
	default:
		for i := range w {
			w[i] = 1
		}
	}
	return w
}

// PowerSpectrum transforms one window of samples (len(input) ==
// p.Size()) into a DC-centered log-power spectrum in dB, written to
// output (len(output) == p.Size()).
func (p *Plan) PowerSpectrum(input []complex64, output []float32) {
	windowed := make([]complex128, p.size)
	for i, s := range input {
		w := p.window[i]
		windowed[i] = complex(float64(real(s)*w), float64(imag(s)*w))
	}

	spectrum := p.cfft.Coefficients(nil, windowed)

	invSize := 1.0 / float64(p.size)
	logMultiplier := 10.0 / math.Log2(10.0)
	half := p.size >> 1

	for i := 0; i < p.size; i++ {
		k := i ^ half
		re := real(spectrum[k]) * invSize
		im := imag(spectrum[k]) * invSize
		power := re*re + im*im
		if power < 1e-20 {
			power = 1e-20
		}
		output[i] = float32(math.Log2(power) * logMultiplier)
	}
}

// Compute performs a generic complex FFT of the input (applying the
// plan's window), returning either the raw linear-scale spectrum or a
// DC-shifted one.
func (p *Plan) Compute(input []complex64, shift bool) []complex128 {
	windowed := make([]complex128, p.size)
	for i, s := range input {
		w := p.window[i]
		windowed[i] = complex(float64(real(s)*w), float64(imag(s)*w))
	}

	spectrum := p.cfft.Coefficients(nil, windowed)
	if !shift {
		out := make([]complex128, p.size)
		copy(out, spectrum)
		return out
	}

	out := make([]complex128, p.size)
	half := p.size >> 1
	for i := 0; i < p.size; i++ {
		out[i] = spectrum[i^half]
	}
	return out
}

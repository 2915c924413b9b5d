// Package correlation computes FFT-accelerated normalized cross-
// correlation between two complex signals and O(1)-per-step sliding
// self-correlation for cyclic-prefix timing recovery.
package correlation

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// CrossCorrelate returns the normalized magnitude of the cross-
// correlation of signal against tmpl, with output length
// len(signal)+len(tmpl)-1, indexed by lag k = i-(len(tmpl)-1).
func CrossCorrelate(signal, tmpl []complex64) []float32 {
	signalLen, tmplLen := len(signal), len(tmpl)
	fftLen := nextPow2(signalLen + tmplLen - 1)

	sigIn := make([]complex128, fftLen)
	tmplIn := make([]complex128, fftLen)
	for i, s := range signal {
		sigIn[i] = complex(float64(real(s)), float64(imag(s)))
	}
	for i, s := range tmpl {
		tmplIn[i] = complex(float64(real(s)), float64(imag(s)))
	}

	fft := fourier.NewCmplxFFT(fftLen)
	sigFFT := fft.Coefficients(nil, sigIn)
	tmplFFT := fft.Coefficients(nil, tmplIn)

	product := make([]complex128, fftLen)
	for i := range product {
		sr, si := real(sigFFT[i]), imag(sigFFT[i])
		tr, ti := real(tmplFFT[i]), -imag(tmplFFT[i]) // conjugate
		product[i] = complex(sr*tr-si*ti, sr*ti+si*tr)
	}

	result := fft.Sequence(nil, product)

	sigCumEnergy := make([]float64, signalLen+1)
	for i, s := range signal {
		r, im := float64(real(s)), float64(imag(s))
		sigCumEnergy[i+1] = sigCumEnergy[i] + r*r + im*im
	}
	tmplCumEnergy := make([]float64, tmplLen+1)
	for i, s := range tmpl {
		r, im := float64(real(s)), float64(imag(s))
		tmplCumEnergy[i+1] = tmplCumEnergy[i] + r*r + im*im
	}

	outLen := signalLen + tmplLen - 1
	output := make([]float32, outLen)
	invN := 1.0 / float64(fftLen)

	for i := 0; i < outLen; i++ {
		k := i - (tmplLen - 1)

		fftIdx := k
		if k < 0 {
			fftIdx = fftLen + k
		}

		re := real(result[fftIdx]) * invN
		im := imag(result[fftIdx]) * invN
		mag := math.Sqrt(re*re + im*im)

		overlapStartSig := max(0, k)
		overlapEndSig := min(signalLen, k+tmplLen)
		eSig := sigCumEnergy[overlapEndSig] - sigCumEnergy[overlapStartSig]

		overlapStartTmpl := max(0, -k)
		overlapEndTmpl := min(tmplLen, signalLen-k)
		eTmpl := tmplCumEnergy[overlapEndTmpl] - tmplCumEnergy[overlapStartTmpl]

		den := math.Sqrt(eSig * eTmpl)
		if den > 1e-12 {
			output[i] = float32(mag / den)
		}
	}

	return output
}

// CrossCorrelateAuto correlates with the shorter of signal/pattern
// sliding through the longer one, whichever way the caller passed
// them. The magnitude output is symmetric under the swap.
func CrossCorrelateAuto(signal, pattern []complex64) []float32 {
	if len(pattern) <= len(signal) {
		return CrossCorrelate(signal, pattern)
	}
	return CrossCorrelate(pattern, signal)
}

// SelfCorrelate computes the Schmidl & Cox sliding-window normalized
// autocorrelation used for cyclic-prefix timing recovery: each output
// sample compares a cpLen-sample window against the window tu samples
// later, updated in O(1) per step. Output length is
// len(signal)-tu-cpLen+1, or nil if signal is too short.
func SelfCorrelate(signal []complex64, tu, cpLen int) []float32 {
	if len(signal) < tu+cpLen {
		return nil
	}

	outLen := len(signal) - tu - cpLen + 1
	output := make([]float32, outLen)

	var productSum complex128
	var energyA, energyB float64

	for i := 0; i < cpLen; i++ {
		a := signal[i]
		b := signal[i+tu]
		productSum += complex(float64(real(a)), float64(imag(a))) * complex(float64(real(b)), -float64(imag(b)))
		energyA += norm(a)
		energyB += norm(b)
	}

	getMag := func(ps complex128, ea, eb float64) float32 {
		den := math.Sqrt(ea * eb)
		if den > 1e-12 {
			return float32(cmplxAbs(ps) / den)
		}
		return 0
	}

	output[0] = getMag(productSum, energyA, energyB)

	for j := 1; j < outLen; j++ {
		oldIdx := j - 1
		newIdx := j + cpLen - 1

		oldA, oldB := signal[oldIdx], signal[oldIdx+tu]
		newA, newB := signal[newIdx], signal[newIdx+tu]

		productSum -= complex(float64(real(oldA)), float64(imag(oldA))) * complex(float64(real(oldB)), -float64(imag(oldB)))
		productSum += complex(float64(real(newA)), float64(imag(newA))) * complex(float64(real(newB)), -float64(imag(newB)))

		energyA -= norm(oldA)
		energyA += norm(newA)
		energyB -= norm(oldB)
		energyB += norm(newB)

		output[j] = getMag(productSum, energyA, energyB)
	}

	return output
}

func norm(c complex64) float64 {
	r, i := float64(real(c)), float64(imag(c))
	return r*r + i*i
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// Package bandpass isolates a narrow band of a complex recording by
// mixing it to baseband and low-pass filtering, used by the SigMF
// export path. The filter is a Kaiser-windowed sinc designed for 60 dB
// stop-band attenuation, following liquid-dsp's firdes_kaiser
// conventions.
package bandpass

import "math"

const tau = 2 * math.Pi

// stop-band attenuation target, dB
const attenuation = 60.0

// Filter mixes input down by centerFreq and applies a Kaiser-windowed
// low-pass FIR with cutoff bandwidth/2, emitting one output sample per
// input sample. The filter's leading transient is not trimmed.
func Filter(input []complex64, centerFreq, bandwidth, sampleRate float64) []complex64 {
	cutoff := bandwidth / sampleRate / 2.0
	if cutoff > 0.49 {
		cutoff = 0.49
	}

	taps := designKaiserLowpass(estimateFilterLen(math.Min(cutoff, 0.05), attenuation), cutoff, attenuation)

	mixed := mixDown(input, tau*centerFreq/sampleRate)

	output := make([]complex64, len(input))
	for i := range mixed {
		var accRe, accIm float64
		for k, t := range taps {
			j := i - k
			if j < 0 {
				break
			}
			accRe += t * float64(real(mixed[j]))
			accIm += t * float64(imag(mixed[j]))
		}
		output[i] = complex(float32(accRe), float32(accIm))
	}
	return output
}

// mixDown multiplies input by exp(-j*freq*n), phase starting at 0.
func mixDown(input []complex64, freq float64) []complex64 {
	out := make([]complex64, len(input))
	phase := 0.0
	for i, s := range input {
		sin, cos := math.Sincos(phase)
		re, im := float64(real(s)), float64(imag(s))
		out[i] = complex(float32(re*cos+im*sin), float32(im*cos-re*sin))
		phase += freq
		if phase > math.Pi {
			phase -= tau
		} else if phase < -math.Pi {
			phase += tau
		}
	}
	return out
}

// estimateFilterLen estimates the tap count needed for a given
// transition bandwidth and stop-band attenuation (harris'
// approximation, as liquid's estimate_req_filter_len), floored at 4.
func estimateFilterLen(df, as float64) int {
	n := int(math.Round(as / (22.0 * df)))
	if n < 4 {
		n = 4
	}
	return n
}

// kaiserBeta derives the Kaiser window shape parameter from the
// stop-band attenuation in dB.
func kaiserBeta(as float64) float64 {
	switch {
	case as > 50:
		return 0.1102 * (as - 8.7)
	case as > 21:
		return 0.5842*math.Pow(as-21, 0.4) + 0.07886*(as-21)
	default:
		return 0
	}
}

// designKaiserLowpass returns n taps of a Kaiser-windowed sinc
// prototype with normalized cutoff fc (cycles/sample), unity DC gain.
func designKaiserLowpass(n int, fc, as float64) []float64 {
	beta := kaiserBeta(as)
	i0beta := besselI0(beta)

	taps := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) - float64(n-1)/2.0
		r := 2 * t / float64(n-1)
		w := besselI0(beta*math.Sqrt(1-r*r)) / i0beta
		taps[i] = 2 * fc * sinc(2*fc*t) * w
	}
	return taps
}

// sinc is the normalized sinc function sin(pi*x)/(pi*x).
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// besselI0 is the zeroth-order modified Bessel function of the first
// kind, by power series.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	half := x / 2
	for k := 1; k < 32; k++ {
		term *= half / float64(k)
		inc := term * term
		sum += inc
		if inc < sum*1e-16 {
			break
		}
	}
	return sum
}

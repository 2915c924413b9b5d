package bandpass

import (
	"math"
	"testing"
)

// tone generates exp(j*2*pi*freq/sampleRate*n).
func tone(n int, freq, sampleRate float64) []complex64 {
	out := make([]complex64, n)
	omega := tau * freq / sampleRate
	for i := range out {
		s, c := math.Sincos(omega * float64(i))
		out[i] = complex(float32(c), float32(s))
	}
	return out
}

func TestFilterPassesInBandTone(t *testing.T) {
	const sampleRate = 1e6
	const center = 100e3
	input := tone(4096, center, sampleRate)

	out := Filter(input, center, 50e3, sampleRate)
	if len(out) != len(input) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(input))
	}

	// a tone at the band center mixes to DC and should pass with
	// roughly unity gain once the filter transient has died down
	for i := 1024; i < len(out); i += 512 {
		mag := math.Hypot(float64(real(out[i])), float64(imag(out[i])))
		if math.Abs(mag-1.0) > 0.05 {
			t.Errorf("|out[%d]| = %v, want ~1.0", i, mag)
		}
	}
}

func TestFilterRejectsOutOfBandTone(t *testing.T) {
	const sampleRate = 1e6
	input := tone(4096, 300e3, sampleRate)

	// band centered at 100 kHz, 50 kHz wide; the 300 kHz tone sits
	// 200 kHz off center, far outside the 25 kHz cutoff
	out := Filter(input, 100e3, 50e3, sampleRate)

	for i := 1024; i < len(out); i += 512 {
		mag := math.Hypot(float64(real(out[i])), float64(imag(out[i])))
		if mag > 0.01 {
			t.Errorf("|out[%d]| = %v, want < 0.01 (stop band)", i, mag)
		}
	}
}

func TestFilterClampsWideCutoff(t *testing.T) {
	// bandwidth wider than the sample rate must not panic or blow up;
	// the cutoff clamps to 0.49 and the block passes nearly unchanged
	input := tone(512, 0, 1e6)
	out := Filter(input, 0, 2e6, 1e6)
	if len(out) != len(input) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(input))
	}
	mag := math.Hypot(float64(real(out[256])), float64(imag(out[256])))
	if math.Abs(mag-1.0) > 0.1 {
		t.Errorf("|out[256]| = %v, want ~1.0", mag)
	}
}

func TestEstimateFilterLenFloor(t *testing.T) {
	if got := estimateFilterLen(0.9, attenuation); got != 4 {
		t.Errorf("estimateFilterLen(0.9) = %d, want floor 4", got)
	}
	if got := estimateFilterLen(0.025, attenuation); got < 50 {
		t.Errorf("estimateFilterLen(0.025) = %d, want a substantial tap count", got)
	}
}

func TestKaiserTapsUnityDCGain(t *testing.T) {
	taps := designKaiserLowpass(estimateFilterLen(0.05, attenuation), 0.1, attenuation)
	var sum float64
	for _, tp := range taps {
		sum += tp
	}
	if math.Abs(sum-1.0) > 0.02 {
		t.Errorf("tap sum = %v, want ~1.0 (unity DC gain)", sum)
	}
}

func TestKaiserBeta(t *testing.T) {
	// 60 dB sits on the As > 50 branch
	want := 0.1102 * (60 - 8.7)
	if got := kaiserBeta(60); math.Abs(got-want) > 1e-12 {
		t.Errorf("kaiserBeta(60) = %v, want %v", got, want)
	}
	if got := kaiserBeta(10); got != 0 {
		t.Errorf("kaiserBeta(10) = %v, want 0", got)
	}
}

package source

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"iqcore/internal/sampleformat"
)

func writeCS16File(t *testing.T, dir, name string, samples int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	buf := make([]byte, samples*4)
	for i := 0; i < samples; i++ {
		re := int16(i)
		im := int16(-i)
		off := i * 4
		buf[off] = byte(re)
		buf[off+1] = byte(re >> 8)
		buf[off+2] = byte(im)
		buf[off+3] = byte(im >> 8)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestOpenCS16NoSigMFDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeCS16File(t, dir, "capture.cs16", 1024)

	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Format() != sampleformat.CS16 {
		t.Errorf("Format = %s, want cs16", s.Format())
	}
	if s.TotalSamples() != 1024 {
		t.Errorf("TotalSamples = %d, want 1024", s.TotalSamples())
	}
	if s.SampleRate() != DefaultSampleRate {
		t.Errorf("SampleRate = %v, want %v", s.SampleRate(), DefaultSampleRate)
	}
}

func TestGetSamplesClampsAtEOF(t *testing.T) {
	dir := t.TempDir()
	path := writeCS16File(t, dir, "capture.cs16", 10)

	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.GetSamples(5, 100)
	if err != nil {
		t.Fatalf("GetSamples: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len(got) = %d, want 5 (clamped)", len(got))
	}
}

func TestGetSamplesPastEndIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeCS16File(t, dir, "capture.cs16", 10)

	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.GetSamples(10, 5)
	if err != nil {
		t.Fatalf("GetSamples: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("len(got) = %d, want 0", len(got))
	}
}

func TestGetSamplesStridedPicksEveryNth(t *testing.T) {
	dir := t.TempDir()
	path := writeCS16File(t, dir, "capture.cs16", 10)

	s, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	got, err := s.GetSamplesStrided(0, 3, 2)
	if err != nil {
		t.Fatalf("GetSamplesStrided: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}
	const scale = 1.0 / 32768.0
	for i, want := range []int{0, 2, 4} {
		wantRe := float32(float64(want) * scale)
		if math.Abs(float64(real(got[i])-wantRe)) > 1e-6 {
			t.Errorf("got[%d] real = %v, want %v", i, real(got[i]), wantRe)
		}
	}
}

func TestOpenWithSigMFSidecar(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "capture.sigmf-data")
	buf := make([]byte, 4*8) // 4 cf32 samples
	if err := os.WriteFile(dataPath, buf, 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	metaPath := filepath.Join(dir, "capture.sigmf-meta")
	metaJSON := `{"global":{"core:datatype":"ci16_le","core:sample_rate":2000000},"captures":[{"core:sample_start":0,"core:frequency":915000000}]}`
	if err := os.WriteFile(metaPath, []byte(metaJSON), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	s, err := Open(dataPath, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Format() != sampleformat.CS16 {
		t.Errorf("Format = %s, want cs16 (from SigMF ci16_le)", s.Format())
	}
	if s.SampleRate() != 2000000 {
		t.Errorf("SampleRate = %v, want 2000000", s.SampleRate())
	}
	if s.CenterFrequency() != 915000000 {
		t.Errorf("CenterFrequency = %v, want 915000000", s.CenterFrequency())
	}
	// data file was sized for cf32 (32 bytes); interpreted as cs16
	// (4 bytes/sample) it now reports 8 samples.
	if s.TotalSamples() != 8 {
		t.Errorf("TotalSamples = %d, want 8", s.TotalSamples())
	}
}

func TestOpenRejectsBigEndianSigMF(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "capture.sigmf-data")
	if err := os.WriteFile(dataPath, make([]byte, 16), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}
	metaPath := filepath.Join(dir, "capture.sigmf-meta")
	metaJSON := `{"global":{"core:datatype":"cf32_be"}}`
	if err := os.WriteFile(metaPath, []byte(metaJSON), 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}

	_, err := Open(dataPath, "")
	if err == nil {
		t.Fatal("Open: want error for big-endian datatype, got nil")
	}
}

func TestGetSamplesBeforeOpenErrors(t *testing.T) {
	s := &Source{}
	if _, err := s.GetSamples(0, 1); err == nil {
		t.Fatal("GetSamples on unopened Source: want error, got nil")
	}
}

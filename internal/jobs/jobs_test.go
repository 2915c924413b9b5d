package jobs

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"iqcore/internal/engineerr"
	"iqcore/internal/sigmf"
	"iqcore/internal/source"
	"iqcore/internal/spectrogram"
)

// writeCF32File writes samples as interleaved little-endian float32.
func writeCF32File(t *testing.T, dir, name string, samples []complex64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	buf := make([]byte, len(samples)*8)
	for i, s := range samples {
		putF32(buf[i*8:], real(s))
		putF32(buf[i*8+4:], imag(s))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func putF32(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func chirp(n int) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		phase := 0.001 * float64(i) * float64(i)
		s, c := math.Sincos(phase)
		out[i] = complex(float32(c), float32(s))
	}
	return out
}

func openSource(t *testing.T, path string) *source.Source {
	t.Helper()
	s, err := source.Open(path, "")
	if err != nil {
		t.Fatalf("Open %s: %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestTileJobFullTile(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "wide.cf32", chirp(70_000)))

	pool := NewPool(2, 8)
	defer pool.Close()

	data, err := pool.SubmitTile(TileJob{Source: src, StartSample: 0, FFTSize: 256, ZoomLevel: 1}).Wait()
	if err != nil {
		t.Fatalf("tile: %v", err)
	}
	// 70k samples hold well over 256 windows, so the tile caps out
	if len(data) != spectrogram.TileLines*256 {
		t.Fatalf("len(data) = %d, want %d", len(data), spectrogram.TileLines*256)
	}
}

func TestTileJobRejectsNonPowerOfTwo(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "short.cf32", chirp(1024)))

	pool := NewPool(1, 8)
	defer pool.Close()

	_, err := pool.SubmitTile(TileJob{Source: src, FFTSize: 100, ZoomLevel: 1}).Wait()
	if !engineerr.Is(err, engineerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestTileJobEmptyTile(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "tiny.cf32", chirp(100)))

	pool := NewPool(1, 8)
	defer pool.Close()

	_, err := pool.SubmitTile(TileJob{Source: src, FFTSize: 256, ZoomLevel: 1}).Wait()
	if !engineerr.Is(err, engineerr.EmptyTile) {
		t.Fatalf("err = %v, want EmptyTile", err)
	}
}

func TestCorrelationJobFileModeFindsPattern(t *testing.T) {
	dir := t.TempDir()
	signal := chirp(4096)
	const patStart, patLen = 1000, 128

	src := openSource(t, writeCF32File(t, dir, "signal.cf32", signal))
	patternPath := writeCF32File(t, dir, "pattern.cf32", signal[patStart:patStart+patLen])

	pool := NewPool(2, 8)
	defer pool.Close()

	data, err := pool.SubmitCorrelation(CorrelationJob{
		Source:       src,
		Mode:         ModeFile,
		WindowStart:  0,
		WindowLength: 4096,
		PatternPath:  patternPath,
	}).Wait()
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if len(data) != 4096+patLen-1 {
		t.Fatalf("len(data) = %d, want %d", len(data), 4096+patLen-1)
	}

	peakIdx, peak := 0, float32(0)
	for i, v := range data {
		if v > peak {
			peak, peakIdx = v, i
		}
	}
	if peakIdx != patStart+patLen-1 {
		t.Errorf("peak at %d, want %d", peakIdx, patStart+patLen-1)
	}
	if math.Abs(float64(peak)-1.0) > 1e-3 {
		t.Errorf("peak = %v, want 1.0 within 1e-3", peak)
	}
}

func TestCorrelationJobSelfMode(t *testing.T) {
	dir := t.TempDir()
	const tu, cpLen = 64, 16
	signal := chirp(1024)
	for i := 0; i < cpLen; i++ {
		signal[i+tu] = signal[i]
	}
	src := openSource(t, writeCF32File(t, dir, "ofdm.cf32", signal))

	pool := NewPool(1, 8)
	defer pool.Close()

	data, err := pool.SubmitCorrelation(CorrelationJob{
		Source:       src,
		Mode:         ModeSelf,
		WindowStart:  0,
		WindowLength: 1024,
		TU:           tu,
		CPLen:        cpLen,
	}).Wait()
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if len(data) != 1024-tu-cpLen+1 {
		t.Fatalf("len(data) = %d, want %d", len(data), 1024-tu-cpLen+1)
	}
	if math.Abs(float64(data[0])-1.0) > 1e-6 {
		t.Errorf("data[0] = %v, want 1.0 for exact prefix repeat", data[0])
	}
}

func TestCorrelationJobInvalidMode(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "x.cf32", chirp(64)))

	pool := NewPool(1, 8)
	defer pool.Close()

	_, err := pool.SubmitCorrelation(CorrelationJob{
		Source:       src,
		Mode:         "bogus",
		WindowLength: 64,
	}).Wait()
	if !engineerr.Is(err, engineerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestExportJobRoundTrip(t *testing.T) {
	dir := t.TempDir()
	samples := chirp(2048)
	src := openSource(t, writeCF32File(t, dir, "capture.cf32", samples))

	pool := NewPool(1, 8)
	defer pool.Close()

	outBase := filepath.Join(dir, "exported")
	_, err := pool.SubmitExport(ExportJob{
		Source:      src,
		OutputPath:  outBase,
		StartSample: 1000,
		EndSample:   2000,
		SampleRate:  1e6,
	}).Wait()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	meta := sigmf.ParseFile(outBase + ".sigmf-meta")
	if meta.Datatype != "cf32_le" {
		t.Errorf("Datatype = %q, want cf32_le", meta.Datatype)
	}
	if len(meta.Annotations) != 1 || meta.Annotations[0].SampleCount != 1000 {
		t.Errorf("annotations = %+v, want one with sample_count 1000", meta.Annotations)
	}

	// re-open the export and verify the samples survived bit-exact
	reopened := openSource(t, outBase+".sigmf-data")
	got, err := reopened.GetSamples(0, 1000)
	if err != nil {
		t.Fatalf("GetSamples: %v", err)
	}
	if len(got) != 1000 {
		t.Fatalf("len(got) = %d, want 1000", len(got))
	}
	for i, v := range got {
		if v != samples[1000+i] {
			t.Fatalf("sample %d = %v, want %v (bit-exact)", i, v, samples[1000+i])
		}
	}
}

func TestExportJobBandpass(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "capture.cf32", chirp(4096)))

	pool := NewPool(1, 8)
	defer pool.Close()

	outBase := filepath.Join(dir, "filtered")
	_, err := pool.SubmitExport(ExportJob{
		Source:        src,
		OutputPath:    outBase,
		StartSample:   0,
		EndSample:     1024,
		SampleRate:    1e6,
		ApplyBandpass: true,
		BandpassLow:   -50e3,
		BandpassHigh:  50e3,
	}).Wait()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	st, err := os.Stat(outBase + ".sigmf-data")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() != 1024*8 {
		t.Errorf("data size = %d, want %d (one cf32 per input sample)", st.Size(), 1024*8)
	}
}

func TestExportJobInvalidRange(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "x.cf32", chirp(64)))

	pool := NewPool(1, 8)
	defer pool.Close()

	_, err := pool.SubmitExport(ExportJob{
		Source:      src,
		OutputPath:  filepath.Join(dir, "bad"),
		StartSample: 10,
		EndSample:   10,
	}).Wait()
	if !engineerr.Is(err, engineerr.InvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestPoolResultsArriveIndependently(t *testing.T) {
	dir := t.TempDir()
	src := openSource(t, writeCF32File(t, dir, "wide.cf32", chirp(10_000)))

	pool := NewPool(4, 16)
	defer pool.Close()

	futures := make([]Future, 8)
	for i := range futures {
		futures[i] = pool.SubmitTile(TileJob{Source: src, StartSample: int64(i * 64), FFTSize: 128, ZoomLevel: 2})
	}
	for i, f := range futures {
		data, err := f.Wait()
		if err != nil {
			t.Fatalf("tile %d: %v", i, err)
		}
		if len(data)%128 != 0 || len(data) == 0 {
			t.Errorf("tile %d: len(data) = %d, want non-empty multiple of 128", i, len(data))
		}
	}
}

// Package spectrogram tiles consecutive FFT power-spectrum lines over
// a sample source at a given zoom level. Windows that would run past
// the end of the source are suppressed rather than zero-padded, so
// tile edges carry no boundary artefacts.
package spectrogram

import (
	"iqcore/internal/engineerr"
	"iqcore/internal/fft"
)

// TileLines is the maximum number of FFT lines in one tile.
const TileLines = 256

// Reader is the sample-providing dependency a Tiler needs; *source.Source
// satisfies it.
type Reader interface {
	GetSamples(start, length int64) ([]complex64, error)
	TotalSamples() int64
}

// Tile is a dense lines×fftSize row-major power-spectrum buffer.
type Tile struct {
	Lines   int
	FFTSize int
	Data    []float32 // len == Lines*FFTSize
}

// Tiler produces spectrogram tiles from a Reader using a fixed FFT plan.
type Tiler struct {
	reader Reader
	plan   *fft.Plan
}

// NewTiler builds a Tiler for the given FFT size with the default
// Hann window.
func NewTiler(reader Reader, fftSize int) *Tiler {
	return &Tiler{reader: reader, plan: fft.NewPlan(fftSize, fft.Hann)}
}

// Tile computes consecutive FFT lines starting at startSample, spaced
// by stride = fftSize/zoomLevel, up to TileLines lines or however many
// fit entirely within the source without zero-padding. It returns
// EmptyTile if no full window fits.
func (t *Tiler) Tile(startSample int64, zoomLevel int) (*Tile, error) {
	if zoomLevel < 1 {
		return nil, engineerr.New(engineerr.InvalidArgument, "", nil)
	}
	fftSize := t.plan.Size()
	stride := int64(fftSize / zoomLevel)
	if stride < 1 {
		stride = 1
	}

	total := t.reader.TotalSamples()
	var maxLines int64
	if startSample+int64(fftSize) <= total {
		maxLines = (total-startSample-int64(fftSize))/stride + 1
	}

	lines := int64(TileLines)
	if maxLines < lines {
		lines = maxLines
	}
	if lines <= 0 {
		return nil, engineerr.New(engineerr.EmptyTile, "", nil)
	}

	data := make([]float32, lines*int64(fftSize))
	for line := int64(0); line < lines; line++ {
		offset := startSample + line*stride
		samples, err := t.reader.GetSamples(offset, int64(fftSize))
		if err != nil {
			return nil, err
		}
		if len(samples) < fftSize {
			// Should not happen given the maxLines clamp above, but
			// guard against a short read from the underlying reader.
			padded := make([]complex64, fftSize)
			copy(padded, samples)
			samples = padded
		}
		row := data[line*int64(fftSize) : (line+1)*int64(fftSize)]
		t.plan.PowerSpectrum(samples, row)
	}

	return &Tile{Lines: int(lines), FFTSize: fftSize, Data: data}, nil
}

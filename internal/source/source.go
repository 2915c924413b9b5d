// Package source opens an I/Q recording, either a raw sample file or a
// SigMF pair, and serves clamped, format-decoded sample reads backed
// by a memory-mapped view of the data file. When mmap is unavailable
// reads fall back to io.ReaderAt with the same semantics.
package source

import (
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"iqcore/internal/engineerr"
	"iqcore/internal/sampleformat"
	"iqcore/internal/sigmf"
)

// DefaultSampleRate is assumed when no SigMF metadata supplies one.
const DefaultSampleRate = 1_000_000.0

// Source is an opened I/Q recording.
type Source struct {
	path   string
	format sampleformat.Format

	mapped     []byte
	file       *os.File
	usingMmap  bool
	fileSize   int64

	totalSamples int64
	sampleRate   float64
	centerFreq   float64
	meta         sigmf.Metadata
}

// Open opens path, detecting its sample format from a SigMF sidecar
// (if present) or from the file extension. overrideFormat, if
// non-empty, takes precedence over both.
func Open(path string, overrideFormat string) (*Source, error) {
	s := &Source{path: path, sampleRate: DefaultSampleRate}

	format, dataPath, meta, err := resolveFormat(path, overrideFormat)
	if err != nil {
		return nil, err
	}
	s.format = format
	s.meta = meta
	if meta.SampleRate > 0 {
		s.sampleRate = meta.SampleRate
	}
	s.centerFreq = meta.CenterFrequency

	f, err := os.Open(dataPath)
	if err != nil {
		return nil, engineerr.New(engineerr.IoError, dataPath, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, engineerr.New(engineerr.IoError, dataPath, err)
	}
	s.fileSize = st.Size()
	s.file = f

	if s.fileSize > 0 {
		mapped, mmapErr := unix.Mmap(int(f.Fd()), 0, int(s.fileSize), unix.PROT_READ, unix.MAP_PRIVATE)
		if mmapErr == nil {
			s.mapped = mapped
			s.usingMmap = true
		}
	}

	s.totalSamples = s.fileSize / int64(s.format.SampleSize())
	return s, nil
}

// resolveFormat detects the sample format and the actual data file
// path to open, following .sigmf-meta/.sigmf-data sibling resolution.
func resolveFormat(path, overrideFormat string) (sampleformat.Format, string, sigmf.Metadata, error) {
	dataPath := path
	var meta sigmf.Metadata

	switch {
	case strings.HasSuffix(path, ".sigmf-meta"):
		dataPath = strings.TrimSuffix(path, ".sigmf-meta") + ".sigmf-data"
		meta = sigmf.ParseFile(path)
	case strings.HasSuffix(path, ".sigmf-data"):
		metaPath := strings.TrimSuffix(path, ".sigmf-data") + ".sigmf-meta"
		if _, err := os.Stat(metaPath); err == nil {
			meta = sigmf.ParseFile(metaPath)
		}
	}

	if overrideFormat != "" {
		f := sampleformat.Format(overrideFormat)
		if !f.Valid() {
			return sampleformat.Default, dataPath, meta, engineerr.New(engineerr.InvalidArgument, path, nil)
		}
		return f, dataPath, meta, nil
	}

	if meta.Datatype != "" {
		f, err := sampleformat.NormalizeSigMFDatatype(meta.Datatype)
		if err == sampleformat.ErrBigEndian {
			return sampleformat.Default, dataPath, meta, engineerr.New(engineerr.FormatError, path, err)
		}
		if err == nil {
			return f, dataPath, meta, nil
		}
		// Unknown datatype: fall through to extension-based detection.
	}

	ext := extensionOf(path)
	return sampleformat.DetectFromExtension(ext), dataPath, meta, nil
}

func extensionOf(path string) string {
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 {
		return ""
	}
	return strings.ToLower(path[dot+1:])
}

// Close releases the mapped region and underlying file handle.
func (s *Source) Close() error {
	if s.usingMmap && s.mapped != nil {
		_ = unix.Munmap(s.mapped)
		s.mapped = nil
		s.usingMmap = false
	}
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// Path returns the path this source was opened with.
func (s *Source) Path() string { return s.path }

// Format returns the detected/overridden sample format.
func (s *Source) Format() sampleformat.Format { return s.format }

// FileSize returns the data file's size in bytes.
func (s *Source) FileSize() int64 { return s.fileSize }

// TotalSamples returns the number of whole samples in the data file.
func (s *Source) TotalSamples() int64 { return s.totalSamples }

// SampleRate returns the SigMF-declared sample rate, or DefaultSampleRate.
func (s *Source) SampleRate() float64 { return s.sampleRate }

// CenterFrequency returns the SigMF-declared center frequency, if any.
func (s *Source) CenterFrequency() float64 { return s.centerFreq }

// Metadata returns the parsed SigMF metadata, zero-valued if none.
func (s *Source) Metadata() sigmf.Metadata { return s.meta }

// GetSamples reads length samples starting at start, clamping to the
// end of the file. If start is at or past TotalSamples, it returns an
// empty slice and no error.
func (s *Source) GetSamples(start, length int64) ([]complex64, error) {
	return s.GetSamplesStrided(start, length, 1)
}

// GetSamplesStrided reads length samples at indices start, start+stride,
// start+2*stride, ... clamping the count so no index reaches past
// TotalSamples. stride must be >= 1. Decimation picks every stride-th
// sample directly; no anti-aliasing filter is applied.
func (s *Source) GetSamplesStrided(start, length, stride int64) ([]complex64, error) {
	if s.file == nil {
		return nil, engineerr.New(engineerr.NotOpen, s.path, nil)
	}
	if stride < 1 {
		return nil, engineerr.New(engineerr.InvalidArgument, s.path, nil)
	}
	if start >= s.totalSamples || length <= 0 {
		return []complex64{}, nil
	}

	maxCount := (s.totalSamples-start-1)/stride + 1
	if length > maxCount {
		length = maxCount
	}

	dest := make([]complex64, length)
	sampleSize := int64(s.format.SampleSize())

	if stride == 1 {
		raw, err := s.readAt(start*sampleSize, length*sampleSize)
		if err != nil {
			return nil, err
		}
		s.format.Decode(raw, 0, int(length), dest)
		return dest, nil
	}

	one := make([]complex64, 1)
	for i := int64(0); i < length; i++ {
		idx := start + i*stride
		raw, err := s.readAt(idx*sampleSize, sampleSize)
		if err != nil {
			return nil, err
		}
		s.format.Decode(raw, 0, 1, one)
		dest[i] = one[0]
	}
	return dest, nil
}

// readAt returns n bytes at byte offset off, from the mmap'd region if
// available or via a ReaderAt otherwise.
func (s *Source) readAt(off, n int64) ([]byte, error) {
	if s.usingMmap {
		if off+n > int64(len(s.mapped)) {
			return nil, engineerr.New(engineerr.IoError, s.path, io.ErrUnexpectedEOF)
		}
		return s.mapped[off : off+n], nil
	}

	buf := make([]byte, n)
	if _, err := s.file.ReadAt(buf, off); err != nil && err != io.EOF {
		return nil, engineerr.New(engineerr.IoError, s.path, err)
	}
	return buf, nil
}

// Package iqcore is the signal-processing core behind an interactive
// spectrogram/analysis front-end for complex I/Q recordings. An Engine
// holds the single active input source and a worker pool; a host
// bridge drives it through the operations below — synchronous sample
// reads, asynchronous spectrogram tiles and correlations, and SigMF
// export.
package iqcore

import (
	"sync"

	"iqcore/internal/config"
	"iqcore/internal/engineerr"
	"iqcore/internal/enginelog"
	"iqcore/internal/jobs"
	"iqcore/internal/sampleformat"
	"iqcore/internal/sigmf"
	"iqcore/internal/source"
)

// FileInfo describes an opened recording.
type FileInfo struct {
	Path            string
	Format          sampleformat.Format
	SampleRate      float64
	TotalSamples    int64
	FileSize        int64
	CenterFrequency float64
	Metadata        sigmf.Metadata
}

// Engine owns the active source and the job pool. Methods on Engine
// are safe to call from one host thread; jobs run concurrently on the
// pool and read the source's shared mapping without locks. Callers
// must quiesce in-flight jobs before OpenFile replaces the source.
type Engine struct {
	cfg  *config.Config
	pool *jobs.Pool

	mu  sync.Mutex
	src *source.Source
}

// New builds an Engine from cfg (nil uses defaults) with its worker
// pool started.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Engine{
		cfg:  cfg,
		pool: jobs.NewPool(cfg.Worker.Count, cfg.Worker.Queue),
	}
}

// Close shuts down the worker pool and releases the active source.
func (e *Engine) Close() error {
	e.pool.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.src != nil {
		err := e.src.Close()
		e.src = nil
		return err
	}
	return nil
}

// OpenFile opens path as the active source, replacing and closing any
// prior one. overrideFormat, when non-empty, takes precedence over
// sidecar metadata and extension detection.
func (e *Engine) OpenFile(path, overrideFormat string) (FileInfo, error) {
	src, err := source.Open(path, overrideFormat)
	if err != nil {
		return FileInfo{}, err
	}

	e.mu.Lock()
	prior := e.src
	e.src = src
	e.mu.Unlock()
	if prior != nil {
		prior.Close()
	}

	enginelog.L().Infow("source opened",
		"path", path,
		"format", src.Format(),
		"samples", src.TotalSamples(),
		"sample_rate", src.SampleRate())

	return FileInfo{
		Path:            path,
		Format:          src.Format(),
		SampleRate:      src.SampleRate(),
		TotalSamples:    src.TotalSamples(),
		FileSize:        src.FileSize(),
		CenterFrequency: src.CenterFrequency(),
		Metadata:        src.Metadata(),
	}, nil
}

// CloseFile releases the active source. Idempotent.
func (e *Engine) CloseFile() {
	e.mu.Lock()
	src := e.src
	e.src = nil
	e.mu.Unlock()
	if src != nil {
		src.Close()
	}
}

// Info returns the active source's FileInfo, or NotOpen.
func (e *Engine) Info() (FileInfo, error) {
	src, err := e.active()
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:            src.Path(),
		Format:          src.Format(),
		SampleRate:      src.SampleRate(),
		TotalSamples:    src.TotalSamples(),
		FileSize:        src.FileSize(),
		CenterFrequency: src.CenterFrequency(),
		Metadata:        src.Metadata(),
	}, nil
}

func (e *Engine) active() (*source.Source, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.src == nil {
		return nil, engineerr.New(engineerr.NotOpen, "", nil)
	}
	return e.src, nil
}

// GetSamples reads length samples at indices start, start+stride, ...
// from the active source, clamped to the file, returned as interleaved
// I/Q float32 pairs. Empty when start is at or past the end.
func (e *Engine) GetSamples(start, length, stride int64) ([]float32, error) {
	src, err := e.active()
	if err != nil {
		return nil, err
	}
	if stride < 1 {
		stride = 1
	}
	if length > e.cfg.Engine.ProgressSamples {
		enginelog.L().Debugw("large sample read", "start", start, "length", length, "stride", stride)
	}

	samples, err := src.GetSamplesStrided(start, length, stride)
	if err != nil {
		return nil, err
	}
	return interleave(samples), nil
}

// ReadFileSamples is a one-shot open-read-close over an arbitrary file;
// it does not disturb the active source.
func ReadFileSamples(path, format string, start, length int64) ([]float32, error) {
	src, err := source.Open(path, format)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	samples, err := src.GetSamples(start, length)
	if err != nil {
		return nil, err
	}
	return interleave(samples), nil
}

// ComputeFFTTile queues a spectrogram tile job over the active source.
// The Future's Data is a row-major lines×fftSize log-power matrix.
func (e *Engine) ComputeFFTTile(startSample int64, fftSize, zoomLevel int) (jobs.Future, error) {
	src, err := e.active()
	if err != nil {
		return nil, err
	}
	return e.pool.SubmitTile(jobs.TileJob{
		Source:      src,
		StartSample: startSample,
		FFTSize:     fftSize,
		ZoomLevel:   zoomLevel,
	}), nil
}

// CorrelateConfig selects and parameterizes a correlation job.
type CorrelateConfig struct {
	Mode          jobs.CorrelationMode
	WindowStart   int64
	WindowLength  int64
	PatternPath   string // Mode == ModeFile
	PatternFormat string // Mode == ModeFile, optional
	TU            int    // Mode == ModeSelf
	CPLen         int    // Mode == ModeSelf
}

// Correlate queues a correlation job over the active source.
func (e *Engine) Correlate(cfg CorrelateConfig) (jobs.Future, error) {
	src, err := e.active()
	if err != nil {
		return nil, err
	}
	return e.pool.SubmitCorrelation(jobs.CorrelationJob{
		Source:        src,
		Mode:          cfg.Mode,
		WindowStart:   cfg.WindowStart,
		WindowLength:  cfg.WindowLength,
		PatternPath:   cfg.PatternPath,
		PatternFormat: cfg.PatternFormat,
		TU:            cfg.TU,
		CPLen:         cfg.CPLen,
	}), nil
}

// ExportConfig parameterizes a SigMF export.
type ExportConfig struct {
	OutputPath      string
	StartSample     int64
	EndSample       int64
	SampleRate      float64
	ApplyBandpass   bool
	BandpassLow     float64
	BandpassHigh    float64
	CenterFrequency float64
	Description     string
	Author          string
	Annotations     []sigmf.Annotation
}

// ExportSigMF writes [StartSample, EndSample) of the active source to
// <OutputPath>.sigmf-data/-meta, optionally bandpass-filtered to
// baseband. Runs on the pool but blocks until done, matching the
// success-or-error contract of the export operation.
func (e *Engine) ExportSigMF(cfg ExportConfig) error {
	src, err := e.active()
	if err != nil {
		return err
	}

	description := cfg.Description
	if description == "" {
		description = e.cfg.Export.Description
	}
	author := cfg.Author
	if author == "" {
		author = e.cfg.Export.Author
	}

	_, err = e.pool.SubmitExport(jobs.ExportJob{
		Source:          src,
		OutputPath:      cfg.OutputPath,
		StartSample:     cfg.StartSample,
		EndSample:       cfg.EndSample,
		SampleRate:      cfg.SampleRate,
		ApplyBandpass:   cfg.ApplyBandpass,
		BandpassLow:     cfg.BandpassLow,
		BandpassHigh:    cfg.BandpassHigh,
		CenterFrequency: cfg.CenterFrequency,
		Description:     description,
		Author:          author,
		Datatype:        e.cfg.Export.Datatype,
		Annotations:     cfg.Annotations,
	}).Wait()
	return err
}

// interleave flattens complex samples to [re0, im0, re1, im1, ...].
func interleave(samples []complex64) []float32 {
	out := make([]float32, 2*len(samples))
	for i, s := range samples {
		out[2*i] = real(s)
		out[2*i+1] = imag(s)
	}
	return out
}

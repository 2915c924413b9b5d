// Package jobs runs spectrogram, correlation, and export work on a
// fixed worker pool so interactive callers never block on DSP.
//
// Each job captures its inputs by value, runs to completion on a
// worker, and delivers a Result over a buffered channel. Results
// arrive in completion order, not submission order.
package jobs

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"iqcore/internal/bandpass"
	"iqcore/internal/correlation"
	"iqcore/internal/engineerr"
	"iqcore/internal/enginelog"
	"iqcore/internal/sigmf"
	"iqcore/internal/source"
	"iqcore/internal/spectrogram"
)

var (
	queuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "iqcore",
		Subsystem: "jobs",
		Name:      "queued",
		Help:      "Jobs submitted but not yet picked up by a worker.",
	})
	inFlightJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "iqcore",
		Subsystem: "jobs",
		Name:      "in_flight",
		Help:      "Jobs currently executing on a worker.",
	})
	jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "iqcore",
		Subsystem: "jobs",
		Name:      "completed_total",
		Help:      "Completed jobs by kind and outcome.",
	}, []string{"kind", "status"})
	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "iqcore",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Wall-clock job execution time by kind.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})
)

// Result carries a completed job's dense output buffer or its error.
type Result struct {
	Data []float32
	Err  error
}

// Future delivers exactly one Result when its job completes.
type Future <-chan Result

// Wait blocks until the job completes and returns its result.
func (f Future) Wait() ([]float32, error) {
	r := <-f
	return r.Data, r.Err
}

// Pool is a fixed-size worker pool draining a job queue.
type Pool struct {
	queue     chan func()
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewPool starts a pool of the given size. workers < 1 sizes the pool
// to the host's CPU count; queueDepth < 1 uses a small default.
func NewPool(workers, queueDepth int) *Pool {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = 64
	}

	p := &Pool{queue: make(chan func(), queueDepth)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	enginelog.L().Debugw("job pool started", "workers", workers, "queue", queueDepth)
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for fn := range p.queue {
		fn()
	}
}

// Close stops accepting jobs and waits for in-flight ones to finish.
// Safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.queue) })
	p.wg.Wait()
}

// submit enqueues run and returns the Future its result arrives on.
func (p *Pool) submit(kind string, run func() ([]float32, error)) Future {
	ch := make(chan Result, 1)
	queuedJobs.Inc()
	p.queue <- func() {
		queuedJobs.Dec()
		inFlightJobs.Inc()
		start := time.Now()

		data, err := run()

		elapsed := time.Since(start)
		inFlightJobs.Dec()
		jobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
		if err != nil {
			jobsTotal.WithLabelValues(kind, "error").Inc()
			enginelog.L().Debugw("job failed", "kind", kind, "elapsed", elapsed, "error", err)
		} else {
			jobsTotal.WithLabelValues(kind, "ok").Inc()
			enginelog.L().Debugw("job done", "kind", kind, "elapsed", elapsed, "values", len(data))
		}
		ch <- Result{Data: data, Err: err}
	}
	return ch
}

// TileJob computes one spectrogram tile.
type TileJob struct {
	Source      *source.Source
	StartSample int64
	FFTSize     int
	ZoomLevel   int
}

// SubmitTile queues a TileJob. Validation errors (non-power-of-two FFT
// size, zoom < 1) are delivered through the Future like any other job
// error.
func (p *Pool) SubmitTile(job TileJob) Future {
	return p.submit("tile", func() ([]float32, error) {
		if job.FFTSize < 2 || job.FFTSize&(job.FFTSize-1) != 0 {
			return nil, engineerr.New(engineerr.InvalidArgument, "", nil)
		}
		tile, err := spectrogram.NewTiler(job.Source, job.FFTSize).Tile(job.StartSample, job.ZoomLevel)
		if err != nil {
			return nil, err
		}
		return tile.Data, nil
	})
}

// CorrelationMode selects between matched-filter cross-correlation
// against a pattern file and cyclic-prefix self-correlation.
type CorrelationMode string

const (
	ModeFile CorrelationMode = "file"
	ModeSelf CorrelationMode = "self"
)

// CorrelationJob correlates a window of the active source either
// against a pattern file (ModeFile) or against itself (ModeSelf).
type CorrelationJob struct {
	Source        *source.Source
	Mode          CorrelationMode
	WindowStart   int64
	WindowLength  int64
	PatternPath   string // ModeFile
	PatternFormat string // ModeFile, optional override
	TU            int    // ModeSelf: symbol length
	CPLen         int    // ModeSelf: cyclic prefix length
}

// SubmitCorrelation queues a CorrelationJob.
func (p *Pool) SubmitCorrelation(job CorrelationJob) Future {
	return p.submit("correlation", func() ([]float32, error) {
		if job.WindowLength <= 0 {
			return nil, engineerr.New(engineerr.InvalidArgument, "", nil)
		}
		switch job.Mode {
		case ModeFile:
			return job.runFile()
		case ModeSelf:
			return job.runSelf()
		default:
			return nil, engineerr.New(engineerr.InvalidArgument, string(job.Mode), nil)
		}
	})
}

// runFile loads the window and the pattern concurrently, then
// cross-correlates with the shorter operand sliding through the longer.
func (job CorrelationJob) runFile() ([]float32, error) {
	var signal, pattern []complex64

	var g errgroup.Group
	g.Go(func() error {
		var err error
		signal, err = job.Source.GetSamples(job.WindowStart, job.WindowLength)
		return err
	})
	g.Go(func() error {
		patternSource, err := source.Open(job.PatternPath, job.PatternFormat)
		if err != nil {
			return err
		}
		defer patternSource.Close()
		pattern, err = patternSource.GetSamples(0, patternSource.TotalSamples())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(signal) == 0 || len(pattern) == 0 {
		return []float32{}, nil
	}
	return correlation.CrossCorrelateAuto(signal, pattern), nil
}

func (job CorrelationJob) runSelf() ([]float32, error) {
	if job.TU <= 0 || job.CPLen <= 0 {
		return nil, engineerr.New(engineerr.InvalidArgument, "", nil)
	}
	signal, err := job.Source.GetSamples(job.WindowStart, job.WindowLength)
	if err != nil {
		return nil, err
	}
	out := correlation.SelfCorrelate(signal, job.TU, job.CPLen)
	if out == nil {
		out = []float32{}
	}
	return out, nil
}

// ExportJob writes a window of the active source as a SigMF pair,
// optionally bandpass-filtered to baseband first.
type ExportJob struct {
	Source          *source.Source
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
	Datatype        string
	Annotations     []sigmf.Annotation
}

// SubmitExport queues an ExportJob. The Future's Data is empty on
// success; only the error matters.
func (p *Pool) SubmitExport(job ExportJob) Future {
	return p.submit("export", func() ([]float32, error) {
		if job.EndSample <= job.StartSample {
			return nil, engineerr.New(engineerr.InvalidArgument, job.OutputPath, nil)
		}

		samples, err := job.Source.GetSamples(job.StartSample, job.EndSample-job.StartSample)
		if err != nil {
			return nil, err
		}

		if job.ApplyBandpass {
			center := (job.BandpassLow + job.BandpassHigh) / 2
			width := job.BandpassHigh - job.BandpassLow
			if width < 0 {
				width = -width
			}
			samples = bandpass.Filter(samples, center, width, job.SampleRate)
		}

		err = sigmf.Write(sigmf.WriteConfig{
			OutputPath:       job.OutputPath,
			Datatype:         job.Datatype,
			SampleRate:       job.SampleRate,
			CenterFrequency:  job.CenterFrequency,
			Description:      job.Description,
			Author:           job.Author,
			SampleStart:      0,
			SampleCount:      uint64(len(samples)),
			ExtraAnnotations: job.Annotations,
		}, samples)
		if err != nil {
			return nil, engineerr.New(engineerr.IoError, job.OutputPath, err)
		}
		return []float32{}, nil
	})
}

// Package config provides configuration structures and defaults for the
// iqcore engine
package config

// Config represents the complete engine configuration
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`  // Signal-processing defaults
	Worker  WorkerConfig  `yaml:"worker"`  // Job pool settings
	Export  ExportConfig  `yaml:"export"`  // SigMF export settings
	Logging LoggingConfig `yaml:"logging"` // Logging configuration
}

// EngineConfig contains signal-processing default parameters
type EngineConfig struct {
	DefaultSampleRate float64 `yaml:"default_sample_rate"` // Nominal no-metadata sample rate (Hz); source.Open does not read it and always assumes source.DefaultSampleRate
	FFTSize           int     `yaml:"fft_size"`            // Default FFT size for spectrogram tiles (power of two)
	ZoomLevel         int     `yaml:"zoom_level"`          // Default zoom level (stride = fft_size / zoom_level)
	ProgressSamples   int64   `yaml:"progress_samples"`    // Log reads touching more than this many samples
}

// WorkerConfig contains job pool configuration parameters
type WorkerConfig struct {
	Count int `yaml:"count"` // Worker goroutines (0 = number of CPUs)
	Queue int `yaml:"queue"` // Pending job queue depth
}

// ExportConfig contains SigMF export configuration parameters
type ExportConfig struct {
	Datatype    string `yaml:"datatype"`    // Output datatype written to the meta file
	Description string `yaml:"description"` // Default core:description for exports
	Author      string `yaml:"author"`      // Default core:author for exports
}

// LoggingConfig contains logging configuration parameters
type LoggingConfig struct {
	Level string `yaml:"level"` // Log level (debug, info, warn, error)
	File  string `yaml:"file"`  // Log file path (empty = stderr)
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			DefaultSampleRate: 1_000_000, // 1 MSps when no metadata says otherwise
			FFTSize:           1024,      // 1024-bin spectrogram lines
			ZoomLevel:         1,         // Non-overlapping windows
			ProgressSamples:   1 << 20,   // Log reads above 1M samples
		},
		Worker: WorkerConfig{
			Count: 0,  // Size pool to host hardware
			Queue: 64, // Pending jobs before Submit blocks
		},
		Export: ExportConfig{
			Datatype:    "cf32_le", // Interleaved complex float32, little-endian
			Description: "",        // No default description
			Author:      "",        // No default author
		},
		Logging: LoggingConfig{
			Level: "info", // Info level logging
			File:  "",     // Log to stderr
		},
	}
}

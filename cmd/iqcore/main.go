// iqcore - command-line driver for the I/Q analysis engine
// This program stands in for the interactive host bridge: it opens
// recordings, reads samples, computes spectrogram tiles and
// correlations, and exports SigMF captures from the terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"iqcore"
	"iqcore/internal/config"
	"iqcore/internal/enginelog"
	"iqcore/internal/jobs"
	"iqcore/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile      string // Configuration file path
	sampleFormat string // Sample format override (cf32, cs16, ...)
	verbose      bool   // Enable verbose logging
	showVersion  bool   // Show version information

	startSample  int64   // First sample index
	sampleLength int64   // Number of samples
	sampleStride int64   // Stride between samples
	fftSize      int     // FFT size (power of two)
	zoomLevel    int     // Zoom level (stride = fftSize/zoom)
	patternFile  string  // Pattern file for file-mode correlation
	patternFmt   string  // Pattern file format override
	symbolLen    int     // Symbol length tu for self-correlation
	cpLen        int     // Cyclic prefix length for self-correlation
	endSample    int64   // Last sample index (exclusive) for export
	exportRate   float64 // Export sample rate override
	applyBP      bool    // Apply bandpass filter on export
	bpLow        float64 // Bandpass lower edge (Hz, relative to center)
	bpHigh       float64 // Bandpass upper edge (Hz, relative to center)
	exportFreq   float64 // core:frequency for the export meta
	exportDesc   string  // core:description for the export meta
	exportAuthor string  // core:author for the export meta
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "iqcore",
	Short: "I/Q recording analysis engine",
	Long: `iqcore opens raw or SigMF I/Q recordings and computes spectrogram
tiles, matched-filter cross-correlation, cyclic-prefix self-correlation,
and narrow-band SigMF exports.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("iqcore"))
			return
		}
		cmd.Usage()
	},
}

// init initializes the CLI flags and configuration
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&sampleFormat, "format", "f", "", "sample format override (cf32, cf64, cs32, cs16, cs8, cu8, rf32, rf64, rs16, rs8, ru8)")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")

	samplesCmd.Flags().Int64Var(&startSample, "start", 0, "first sample index")
	samplesCmd.Flags().Int64Var(&sampleLength, "length", 16, "number of samples")
	samplesCmd.Flags().Int64Var(&sampleStride, "stride", 1, "index stride between samples")

	tileCmd.Flags().Int64Var(&startSample, "start", 0, "first sample of the tile")
	tileCmd.Flags().IntVar(&fftSize, "fft-size", 0, "FFT size, power of two (default from config)")
	tileCmd.Flags().IntVar(&zoomLevel, "zoom", 0, "zoom level, stride = fft-size/zoom (default from config)")

	correlateCmd.Flags().Int64Var(&startSample, "start", 0, "window start sample")
	correlateCmd.Flags().Int64Var(&sampleLength, "length", 4096, "window length in samples")
	correlateCmd.Flags().StringVar(&patternFile, "pattern", "", "pattern file (file mode)")
	correlateCmd.Flags().StringVar(&patternFmt, "pattern-format", "", "pattern file format override")
	correlateCmd.Flags().IntVar(&symbolLen, "tu", 0, "symbol length in samples (self mode)")
	correlateCmd.Flags().IntVar(&cpLen, "cp", 0, "cyclic prefix length in samples (self mode)")

	exportCmd.Flags().Int64Var(&startSample, "start", 0, "first sample to export")
	exportCmd.Flags().Int64Var(&endSample, "end", 0, "one past the last sample to export")
	exportCmd.Flags().Float64Var(&exportRate, "sample-rate", 0, "sample rate written to the meta file (default: source rate)")
	exportCmd.Flags().BoolVar(&applyBP, "bandpass", false, "bandpass-filter to baseband before writing")
	exportCmd.Flags().Float64Var(&bpLow, "bandpass-low", 0, "bandpass lower edge (Hz)")
	exportCmd.Flags().Float64Var(&bpHigh, "bandpass-high", 0, "bandpass upper edge (Hz)")
	exportCmd.Flags().Float64Var(&exportFreq, "frequency", 0, "center frequency written to the meta file (Hz)")
	exportCmd.Flags().StringVar(&exportDesc, "description", "", "description written to the meta file")
	exportCmd.Flags().StringVar(&exportAuthor, "author", "", "author written to the meta file")

	rootCmd.AddCommand(inspectCmd, samplesCmd, tileCmd, correlateCmd, exportCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// engineCfg is the merged configuration, populated by loadConfig
var engineCfg *config.Config

// loadConfig merges defaults, config file, and flags into one Config
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := enginelog.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	engineCfg = cfg
	return cfg, nil
}

// openEngine builds an Engine and opens path as its active source
func openEngine(path string) (*iqcore.Engine, iqcore.FileInfo, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, iqcore.FileInfo{}, err
	}
	engine := iqcore.New(cfg)
	info, err := engine.OpenFile(path, sampleFormat)
	if err != nil {
		engine.Close()
		return nil, iqcore.FileInfo{}, err
	}
	return engine, info, nil
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Display recording metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInspect(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runInspect(path string) error {
	engine, info, err := openEngine(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Printf("📁 File Information:\n")
	fmt.Printf("Name: %s\n", filepath.Base(info.Path))
	fmt.Printf("Size: %.2f MB (%d bytes)\n", float64(info.FileSize)/(1024*1024), info.FileSize)
	fmt.Printf("Format: %s\n", info.Format)
	fmt.Printf("Samples: %d\n", info.TotalSamples)
	fmt.Printf("Sample Rate: %.0f Hz\n", info.SampleRate)
	if info.CenterFrequency != 0 {
		fmt.Printf("Center Frequency: %.2f MHz\n", info.CenterFrequency/1e6)
	}
	if info.Metadata.Description != "" {
		fmt.Printf("Description: %s\n", info.Metadata.Description)
	}
	if info.Metadata.Author != "" {
		fmt.Printf("Author: %s\n", info.Metadata.Author)
	}
	if len(info.Metadata.Annotations) > 0 {
		fmt.Printf("\n🏷️  Annotations (%d):\n", len(info.Metadata.Annotations))
		for i, a := range info.Metadata.Annotations {
			fmt.Printf("  [%d] samples %d..%d", i, a.SampleStart, a.SampleStart+a.SampleCount)
			if a.Label != "" {
				fmt.Printf("  %q", a.Label)
			}
			fmt.Println()
		}
	}
	return nil
}

var samplesCmd = &cobra.Command{
	Use:   "samples [file]",
	Short: "Print decoded I/Q samples",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSamples(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runSamples(path string) error {
	engine, info, err := openEngine(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	data, err := engine.GetSamples(startSample, sampleLength, sampleStride)
	if err != nil {
		return err
	}

	fmt.Printf("📊 %d samples of %s (start=%d stride=%d):\n", len(data)/2, filepath.Base(info.Path), startSample, sampleStride)
	for i := 0; i+1 < len(data); i += 2 {
		fmt.Printf("%8d: %+.6f %+.6fi\n", startSample+int64(i/2)*sampleStride, data[i], data[i+1])
	}
	return nil
}

var tileCmd = &cobra.Command{
	Use:   "tile [file]",
	Short: "Compute one spectrogram tile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTile(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runTile(path string) error {
	engine, info, err := openEngine(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	size := fftSize
	if size == 0 {
		size = engineCfg.Engine.FFTSize
	}
	zoom := zoomLevel
	if zoom == 0 {
		zoom = engineCfg.Engine.ZoomLevel
	}

	fmt.Printf("📈 Computing tile: start=%d fft=%d zoom=%d (%d total samples)...\n",
		startSample, size, zoom, info.TotalSamples)

	future, err := engine.ComputeFFTTile(startSample, size, zoom)
	if err != nil {
		return err
	}
	data, err := future.Wait()
	if err != nil {
		return err
	}

	lines := len(data) / size
	fmt.Printf("✅ Tile complete: %d lines × %d bins\n", lines, size)
	for line := 0; line < lines; line++ {
		row := data[line*size : (line+1)*size]
		minV, maxV := row[0], row[0]
		for _, v := range row {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		fmt.Printf("line %3d: %.1f .. %.1f dB\n", line, minV, maxV)
	}
	return nil
}

var correlateCmd = &cobra.Command{
	Use:   "correlate [file] [self|file]",
	Short: "Correlate a window of the recording",
	Long: `Correlate a window of the recording.

Modes:
  file   matched-filter cross-correlation against --pattern
  self   sliding cyclic-prefix self-correlation with --tu and --cp`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCorrelate(args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runCorrelate(path, mode string) error {
	engine, _, err := openEngine(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	corrCfg := iqcore.CorrelateConfig{
		Mode:          jobs.CorrelationMode(mode),
		WindowStart:   startSample,
		WindowLength:  sampleLength,
		PatternPath:   patternFile,
		PatternFormat: patternFmt,
		TU:            symbolLen,
		CPLen:         cpLen,
	}

	future, err := engine.Correlate(corrCfg)
	if err != nil {
		return err
	}
	data, err := future.Wait()
	if err != nil {
		return err
	}

	peakIdx, peak := 0, float32(0)
	for i, v := range data {
		if v > peak {
			peak, peakIdx = v, i
		}
	}

	fmt.Printf("✅ Correlation complete: %d values\n", len(data))
	if len(data) > 0 {
		fmt.Printf("Peak: %.4f at index %d\n", peak, peakIdx)
	}
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export [file] [output-base]",
	Short: "Export a window as a SigMF pair",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExport(args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func runExport(path, outputBase string) error {
	engine, info, err := openEngine(path)
	if err != nil {
		return err
	}
	defer engine.Close()

	rate := exportRate
	if rate == 0 {
		rate = info.SampleRate
	}
	end := endSample
	if end == 0 {
		end = info.TotalSamples
	}

	fmt.Printf("💾 Exporting samples %d..%d to %s.sigmf-{data,meta}...\n", startSample, end, outputBase)

	err = engine.ExportSigMF(iqcore.ExportConfig{
		OutputPath:      outputBase,
		StartSample:     startSample,
		EndSample:       end,
		SampleRate:      rate,
		ApplyBandpass:   applyBP,
		BandpassLow:     bpLow,
		BandpassHigh:    bpHigh,
		CenterFrequency: exportFreq,
		Description:     exportDesc,
		Author:          exportAuthor,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✅ Export complete\n")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	version   = "development"
	goVersion = "unknown"
	buildDate = "unknown"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitInvalidArgs = 2
)

const defaultConfigFile = "eegcsv.yaml"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("eegcsv", flag.ContinueOnError)
	configFile := fs.String("config", defaultConfigFile, "Config file (optional when left at the default)")
	workDir := fs.String("work-dir", "", "Directory for the archive, extracted files and CSV")
	skipDownload := fs.Bool("skip-download", false, "Reuse an existing archive")
	skipExtract := fs.Bool("skip-extract", false, "Reuse an already extracted tree")
	rowMode := fs.String("row-mode", "", `"last" (one row per recording) or "per_annotation"`)
	dryRun := fs.Bool("dry-run", false, "Don't write to Influx")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	versionFlag := fs.Bool("v", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	fmt.Fprintf(os.Stderr, "eegcsv version %s built on %s with %s\n", version, buildDate, goVersion)
	if *versionFlag {
		return ExitSuccess
	}

	configSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configSet = true
		}
	})
	cfg, err := loadConfig(*configFile, configSet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if *workDir != "" {
		cfg.WorkDir = *workDir
	}
	if *rowMode != "" {
		cfg.RowMode = RowMode(*rowMode)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.SkipDownload = cfg.SkipDownload || *skipDownload
	cfg.SkipExtract = cfg.SkipExtract || *skipExtract
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	initLogging(os.Stderr, parseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink WindowSink
	if cfg.Influx.Host != "" && !*dryRun {
		sink = NewInfluxWriter(cfg.Influx)
	}
	if err := execute(ctx, cfg, sink); err != nil {
		slog.Error("Conversion failed", "error", err)
		return ExitFailure
	}
	return ExitSuccess
}

// loadConfig layers the config file (if any) and the environment over the
// defaults. A missing file is only an error when it was asked for explicitly.
func loadConfig(file string, required bool) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(file); err == nil || required {
		cfg, err = LoadFromFile(file)
		if err != nil {
			return Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// execute runs download, extraction and conversion in sequence. sink may be
// nil; it is closed before execute returns.
func execute(ctx context.Context, cfg Config, sink WindowSink) error {
	if sink != nil {
		defer sink.Close()
	}
	progressOut := io.Writer(os.Stderr)
	if !cfg.Progress {
		progressOut = io.Discard
	}
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	if summaryPath := cfg.SummaryPath(); summaryPath != "" {
		if prev, err := readSummary(summaryPath); err == nil {
			slog.Info("Previous run", "finished", prev.Finished.Format(time.DateTime),
				"files", humanize.Comma(int64(prev.Files)), "rows", humanize.Comma(int64(prev.Rows)))
		}
	}

	archive := cfg.ArchivePath()
	if !cfg.SkipDownload {
		slog.Info("Downloading the EEG dataset", "url", cfg.URL, "archive", archive)
		progress := NewReporter(ProgressOptions{Label: "download", Bytes: true, Output: progressOut})
		progress.Start()
		n, err := NewDownloader(DownloadOptions{Timeout: cfg.Timeout, RateLimit: cfg.RateLimit}).
			Download(ctx, cfg.URL, archive, progress.UpdateTo)
		progress.Stop()
		if err != nil {
			return err
		}
		slog.Info("Downloaded archive", "size", humanize.Bytes(uint64(n)))
	}

	if !cfg.SkipExtract {
		slog.Info("Unzipping the dataset", "archive", archive, "dest", cfg.WorkDir)
		progress := NewReporter(ProgressOptions{Label: "extract", Output: progressOut})
		progress.Start()
		n, err := extractArchive(archive, cfg.WorkDir, func(total int) {
			progress.SetTotal(int64(total))
			progress.Add(1)
		})
		progress.Stop()
		if err != nil {
			return err
		}
		slog.Info("Extracted archive", "members", humanize.Comma(int64(n)))
	}

	files, err := findRecordings(cfg.WorkDir, cfg.Glob)
	if err != nil {
		return err
	}
	output := cfg.OutputPath()
	slog.Info("Exporting to CSV file", "output", output, "recordings", humanize.Comma(int64(len(files))), "row_mode", cfg.RowMode)
	if len(files) == 0 {
		slog.Warn("No recordings matched", "glob", cfg.Glob, "work_dir", cfg.WorkDir)
	}

	out, err := CreateCSV(output)
	if err != nil {
		return err
	}
	converter := &Converter{
		Decoder: edfDecoder{},
		Tasks:   cfg.Tasks,
		Mode:    cfg.RowMode,
		Root:    cfg.WorkDir,
		Out:     out,
		Sink:    sink,
	}
	progress := NewReporter(ProgressOptions{Label: "convert", Total: int64(len(files)), Output: progressOut})
	progress.Start()
	stats, convErr := converter.Convert(ctx, files, progress)
	progress.Stop()
	if err := out.Close(); err != nil && convErr == nil {
		convErr = err
	}
	if convErr != nil {
		return convErr
	}

	slog.Info("FINISHED", "output", output,
		"files", humanize.Comma(int64(stats.Files)),
		"rows", humanize.Comma(int64(out.Rows())),
		"annotations", humanize.Comma(int64(stats.Annotations)),
		"nan_windows", stats.NaNWindows,
		"skipped", stats.Skipped)

	if summaryPath := cfg.SummaryPath(); summaryPath != "" {
		err := writeSummary(Summary{
			Finished:    time.Now(),
			Output:      output,
			RowMode:     cfg.RowMode,
			Files:       stats.Files,
			Rows:        stats.Rows,
			Annotations: stats.Annotations,
			NaNWindows:  stats.NaNWindows,
			Skipped:     stats.Skipped,
		}, summaryPath)
		if err != nil {
			return err
		}
	}
	return nil
}

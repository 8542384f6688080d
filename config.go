package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// DatasetURL is the PhysioNet EEG Motor Movement/Imagery dataset archive.
const DatasetURL = "https://physionet.org/static/published-projects/eegmmidb/eeg-motor-movementimagery-dataset-1.0.0.zip"

// DefaultTasks maps a 0-based run index to the task performed in that run.
// Runs are numbered from 1 in the dataset filenames.
var DefaultTasks = []string{
	"Baseline, eyes open",
	"Baseline, eyes closed",
	"Task 1",
	"Task 2",
	"Task 3",
	"Task 4",
	"Task 1",
	"Task 2",
	"Task 3",
	"Task 4",
	"Task 1",
	"Task 2",
	"Task 3",
	"Task 4",
}

// RowMode selects how annotation windows become CSV rows.
type RowMode string

const (
	// RowModeLast writes one row per recording holding only its final
	// annotation window.
	RowModeLast RowMode = "last"
	// RowModePerAnnotation writes one row per annotation window.
	RowModePerAnnotation RowMode = "per_annotation"
)

func (m RowMode) valid() bool {
	return m == RowModeLast || m == RowModePerAnnotation
}

// Config is the configuration for a conversion run. Relative paths are
// resolved against WorkDir.
type Config struct {
	URL          string
	WorkDir      string
	Archive      string
	Glob         string
	Output       string
	Summary      string
	Tasks        []string
	RowMode      RowMode
	RateLimit    int64 // bytes per second, 0 means unlimited
	Timeout      time.Duration
	LogLevel     string
	Progress     bool
	SkipDownload bool
	SkipExtract  bool
	Influx       InfluxConfig
}

// Default returns the configuration that reproduces the dataset export.
func Default() Config {
	return Config{
		URL:      DatasetURL,
		WorkDir:  ".",
		Archive:  "temp_eeg_data.zip",
		Glob:     filepath.Join("files", "S*", "*.edf"),
		Output:   "eeg_data.csv",
		Summary:  "eeg_data.summary.yaml",
		Tasks:    append([]string(nil), DefaultTasks...),
		RowMode:  RowModeLast,
		LogLevel: "info",
		Progress: true,
		Influx: InfluxConfig{
			Measurement: "eeg",
		},
	}
}

// yamlConfig mirrors Config with string forms of sizes and durations.
type yamlConfig struct {
	URL          string       `yaml:"url"`
	WorkDir      string       `yaml:"work_dir"`
	Archive      string       `yaml:"archive"`
	Glob         string       `yaml:"glob"`
	Output       string       `yaml:"output"`
	Summary      *string      `yaml:"summary"`
	Tasks        []string     `yaml:"tasks"`
	RowMode      string       `yaml:"row_mode"`
	RateLimit    string       `yaml:"rate_limit"`
	Timeout      string       `yaml:"timeout"`
	LogLevel     string       `yaml:"log_level"`
	Progress     *bool        `yaml:"progress"`
	SkipDownload bool         `yaml:"skip_download"`
	SkipExtract  bool         `yaml:"skip_extract"`
	Influx       InfluxConfig `yaml:"influx"`
}

// LoadFromFile reads a YAML config file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := Default()
	if yc.URL != "" {
		cfg.URL = yc.URL
	}
	if yc.WorkDir != "" {
		cfg.WorkDir = yc.WorkDir
	}
	if yc.Archive != "" {
		cfg.Archive = yc.Archive
	}
	if yc.Glob != "" {
		cfg.Glob = yc.Glob
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Summary != nil {
		cfg.Summary = *yc.Summary
	}
	if len(yc.Tasks) > 0 {
		cfg.Tasks = yc.Tasks
	}
	if yc.RowMode != "" {
		cfg.RowMode = RowMode(yc.RowMode)
	}
	if yc.RateLimit != "" {
		limit, err := parseRate(yc.RateLimit)
		if err != nil {
			return Config{}, fmt.Errorf("parse rate_limit: %w", err)
		}
		cfg.RateLimit = limit
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	cfg.SkipDownload = yc.SkipDownload
	cfg.SkipExtract = yc.SkipExtract
	if yc.Influx.Host != "" {
		measurement := cfg.Influx.Measurement
		cfg.Influx = yc.Influx
		if cfg.Influx.Measurement == "" {
			cfg.Influx.Measurement = measurement
		}
	}
	return cfg, nil
}

// LoadFromEnv applies EEGCSV_* environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("EEGCSV_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("EEGCSV_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if v := os.Getenv("EEGCSV_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("EEGCSV_ROW_MODE"); v != "" {
		c.RowMode = RowMode(v)
	}
	if v := os.Getenv("EEGCSV_RATE_LIMIT"); v != "" {
		limit, err := parseRate(v)
		if err != nil {
			return fmt.Errorf("parse EEGCSV_RATE_LIMIT: %w", err)
		}
		c.RateLimit = limit
	}
	if v := os.Getenv("EEGCSV_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse EEGCSV_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("EEGCSV_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("EEGCSV_INFLUX_HOST"); v != "" {
		c.Influx.Host = v
	}
	if v := os.Getenv("EEGCSV_INFLUX_TOKEN"); v != "" {
		c.Influx.AuthToken = v
	}
	if v := os.Getenv("EEGCSV_INFLUX_ORG"); v != "" {
		c.Influx.Org = v
	}
	if v := os.Getenv("EEGCSV_INFLUX_BUCKET"); v != "" {
		c.Influx.Bucket = v
	}
	return nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if c.URL == "" && !c.SkipDownload {
		return errors.New("config: url is required unless skip_download is set")
	}
	if c.Archive == "" && !(c.SkipDownload && c.SkipExtract) {
		return errors.New("config: archive is required")
	}
	if c.Glob == "" {
		return errors.New("config: glob is required")
	}
	if _, err := filepath.Match(c.Glob, ""); err != nil {
		return fmt.Errorf("config: glob: %w", err)
	}
	if c.Output == "" {
		return errors.New("config: output is required")
	}
	if len(c.Tasks) == 0 {
		return errors.New("config: tasks must not be empty")
	}
	if !c.RowMode.valid() {
		return fmt.Errorf("config: row_mode must be %q or %q, got %q", RowModeLast, RowModePerAnnotation, c.RowMode)
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	if c.Timeout < 0 {
		return errors.New("config: timeout must not be negative")
	}
	if c.Influx.Host != "" && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		return errors.New("config: influx org and bucket are required when influx host is set")
	}
	return nil
}

// ArchivePath is where the downloaded archive is stored.
func (c *Config) ArchivePath() string { return c.resolve(c.Archive) }

// OutputPath is where the CSV is written.
func (c *Config) OutputPath() string { return c.resolve(c.Output) }

// SummaryPath is where the run summary is written, or "" if disabled.
func (c *Config) SummaryPath() string {
	if c.Summary == "" {
		return ""
	}
	return c.resolve(c.Summary)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkDir, p)
}

// parseRate parses a byte rate such as "5MB" or "512 KiB/s".
func parseRate(s string) (int64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "/s")
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary describes a finished conversion run.
type Summary struct {
	Finished    time.Time `yaml:"finished"`
	Output      string    `yaml:"output"`
	RowMode     RowMode   `yaml:"row_mode"`
	Files       int       `yaml:"files"`
	Rows        int       `yaml:"rows"`
	Annotations int       `yaml:"annotations"`
	NaNWindows  int       `yaml:"nan_windows"`
	Skipped     int       `yaml:"skipped"`
}

func readSummary(file string) (Summary, error) {
	f, err := os.ReadFile(file)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	if err := yaml.Unmarshal(f, &summary); err != nil {
		return Summary{}, fmt.Errorf("parse summary %s: %w", file, err)
	}
	return summary, nil
}

func writeSummary(summary Summary, file string) error {
	bytes, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(file, bytes, 0o644); err != nil {
		return fmt.Errorf("write summary %s: %w", file, err)
	}
	return nil
}

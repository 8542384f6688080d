package main

import (
	"context"
	"fmt"
	"log/slog"
)

// Stats counts what a conversion produced.
type Stats struct {
	Files       int
	Rows        int
	Annotations int
	NaNWindows  int
	Skipped     int
}

// Converter turns decoded recordings into CSV rows.
type Converter struct {
	Decoder Decoder
	Tasks   []string
	Mode    RowMode
	Root    string // Filename column paths are relative to Root
	Out     *CSVWriter
	Sink    WindowSink // optional
}

// Convert processes files in order. The first error aborts the batch; rows
// already written stay in the output. Each file is one step on progress.
func (c *Converter) Convert(ctx context.Context, files []string, progress *Reporter) (Stats, error) {
	var stats Stats
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := c.convertFile(file, &stats); err != nil {
			return stats, err
		}
		stats.Files++
		if progress != nil {
			progress.Add(1)
		}
	}
	return stats, nil
}

func (c *Converter) convertFile(file string, stats *Stats) error {
	run, err := runIndex(file)
	if err != nil {
		return err
	}
	task, err := taskLabel(c.Tasks, run)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	rec, err := c.Decoder.Decode(file)
	if err != nil {
		return err
	}
	ws, err := windows(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	stats.Annotations += len(ws)

	base := Row{
		Filename: displayName(c.Root, file),
		Task:     task,
		Run:      run,
	}
	for _, w := range ws {
		if w.NaNChannels > 0 {
			stats.NaNWindows++
			slog.Warn("Zero-variance channels normalized to NaN",
				"file", base.Filename, "code", w.Annotation.Label, "onset", w.Annotation.Onset, "channels", w.NaNChannels)
		}
		if c.Sink != nil {
			c.Sink.WriteWindow(rec, base, w)
		}
	}

	if len(ws) == 0 {
		stats.Skipped++
		slog.Warn("Recording has no annotations, no row written", "file", base.Filename)
		return nil
	}

	written := ws
	if c.Mode != RowModePerAnnotation {
		written = ws[len(ws)-1:]
	}
	for _, w := range written {
		row := base
		row.Code = w.Annotation.Label
		row.EEG = w.Data
		if err := c.Out.Write(row); err != nil {
			return err
		}
		stats.Rows++
	}
	slog.Debug("Converted recording", "file", base.Filename, "task", task, "run", run, "windows", len(ws), "rows", len(written))
	return nil
}

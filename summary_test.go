package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_data.summary.yaml")
	want := Summary{
		Finished:    time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC),
		Output:      "eeg_data.csv",
		RowMode:     RowModeLast,
		Files:       1526,
		Rows:        1526,
		Annotations: 45582,
		NaNWindows:  3,
	}
	require.NoError(t, writeSummary(want, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "row_mode: last")
	assert.Contains(t, string(raw), "nan_windows: 3")

	got, err := readSummary(path)
	require.NoError(t, err)
	assert.True(t, want.Finished.Equal(got.Finished))
	got.Finished = want.Finished
	assert.Equal(t, want, got)
}

func TestReadSummaryMissing(t *testing.T) {
	_, err := readSummary(filepath.Join(t.TempDir(), "none.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadSummaryInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("files: [not a number"), 0644))
	_, err := readSummary(path)
	assert.Error(t, err)
}

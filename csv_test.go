package main

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_data.csv")
	w, err := CreateCSV(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Filename,Task,Run,Code,EEG\r\n", string(raw))
	assert.Equal(t, 0, w.Rows())
}

func TestCSVRowsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_data.csv")
	w, err := CreateCSV(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(Row{
		Filename: "./files/S001/S001R01.edf",
		Task:     "Baseline, eyes open",
		Run:      0,
		Code:     "T0",
		EEG:      [][]float64{{0.5, -1.25}, {2, math.NaN()}},
	}))
	require.NoError(t, w.Write(Row{
		Filename: "./files/S001/S001R03.edf",
		Task:     "Task 1",
		Run:      2,
		Code:     "T2",
		EEG:      [][]float64{{1}},
	}))
	assert.Equal(t, 2, w.Rows())
	require.NoError(t, w.Close())

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Filename", "Task", "Run", "Code", "EEG"}, records[0])
	assert.Equal(t, []string{
		"./files/S001/S001R01.edf",
		"Baseline, eyes open",
		"0",
		"T0",
		"[[0.5 -1.25]\n [2 nan]]",
	}, records[1])
	assert.Equal(t, "2", records[2][2])
	assert.Equal(t, "[[1]]", records[2][4])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), `"Baseline, eyes open"`), "fields with commas are quoted")
	assert.True(t, strings.Contains(string(raw), ",Task 1,"), "plain fields are not quoted")
}

func TestCSVRawBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_data.csv")
	w, err := CreateCSV(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(Row{
		Filename: "./files/S001/S001R04.edf",
		Task:     "Task 2",
		Run:      3,
		Code:     "T1",
		EEG:      [][]float64{{1, 2}, {3, 4}},
	}))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// record terminators are CRLF, the newline between matrix rows stays LF
	assert.Equal(t,
		"Filename,Task,Run,Code,EEG\r\n"+
			"./files/S001/S001R04.edf,Task 2,3,T1,\"[[1 2]\n [3 4]]\"\r\n",
		string(raw))
}

func TestCSVRowsVisibleBeforeClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_data.csv")
	w, err := CreateCSV(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(Row{Filename: "a.edf", Task: "Task 1", Run: 2, Code: "T1", EEG: [][]float64{{0}}}))
	records := readCSV(t, path)
	assert.Len(t, records, 2)
}

func TestCSVTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eeg_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("old,content\nmore,rows\n"), 0644))

	w, err := CreateCSV(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	records := readCSV(t, path)
	assert.Equal(t, [][]string{csvHeader}, records)
}

func TestFormatMatrix(t *testing.T) {
	assert.Equal(t, "[]", formatMatrix(nil))
	assert.Equal(t, "[[]\n []]", formatMatrix([][]float64{{}, {}}))
	assert.Equal(t, "[[0.1 inf -inf]]", formatMatrix([][]float64{{0.1, math.Inf(1), math.Inf(-1)}}))
	assert.Equal(t, "[[1e-07 -3.5]\n [0 42]]", formatMatrix([][]float64{{1e-7, -3.5}, {0, 42}}))
}

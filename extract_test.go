package main

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip builds an archive from name -> content; names ending in "/" are
// directory entries.
func writeZip(t *testing.T, path string, members []string, contents map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if c, ok := contents[name]; ok {
			_, err = w.Write([]byte(c))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestExtractArchivePreservesTree(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "temp_eeg_data.zip")
	members := []string{
		"files/",
		"files/S001/",
		"files/S001/S001R01.edf",
		"files/S001/S001R01.edf.event",
		"files/S002/S002R14.edf",
		"RECORDS",
	}
	writeZip(t, archive, members, map[string]string{
		"files/S001/S001R01.edf":       "edf one",
		"files/S001/S001R01.edf.event": "events",
		"files/S002/S002R14.edf":       "edf fourteen",
		"RECORDS":                      "S001/S001R01.edf\n",
	})

	dest := filepath.Join(dir, "out")
	calls := 0
	n, err := extractArchive(archive, dest, func(total int) {
		calls++
		assert.Equal(t, len(members), total)
	})
	require.NoError(t, err)
	assert.Equal(t, len(members), n)
	assert.Equal(t, len(members), calls)

	got, err := os.ReadFile(filepath.Join(dest, "files", "S002", "S002R14.edf"))
	require.NoError(t, err)
	assert.Equal(t, "edf fourteen", string(got))

	got, err = os.ReadFile(filepath.Join(dest, "RECORDS"))
	require.NoError(t, err)
	assert.Equal(t, "S001/S001R01.edf\n", string(got))

	info, err := os.Stat(filepath.Join(dest, "files", "S001"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestExtractArchiveStaysInsideDest(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, []string{"../../escape.txt", "/abs/file.txt"}, map[string]string{
		"../../escape.txt": "nope",
		"/abs/file.txt":    "abs",
	})

	dest := filepath.Join(dir, "out")
	_, err := extractArchive(archive, dest, nil)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dest, "escape.txt"))
	assert.FileExists(t, filepath.Join(dest, "abs", "file.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
}

func TestExtractArchiveCorrupt(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archive, []byte("this is not a zip"), 0644))

	_, err := extractArchive(archive, dir, nil)
	assert.Error(t, err)
}

func TestMemberPath(t *testing.T) {
	tests := map[string]string{
		"files/S001/S001R01.edf": filepath.Join("files", "S001", "S001R01.edf"),
		"./a/./b":                filepath.Join("a", "b"),
		"../../x":                "x",
		"/etc/passwd":            filepath.Join("etc", "passwd"),
		`C:\temp\y.edf`:          filepath.Join("temp", "y.edf"),
		"..":                     "",
		"":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, memberPath(in), "memberPath(%q)", in)
	}
}

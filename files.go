package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrBadRunIndex is returned for filenames without a usable run number.
var ErrBadRunIndex = errors.New("run index")

// findRecordings returns the files under root matching pattern, in the order
// the filesystem glob yields them. Calling it again on an unchanged tree
// yields the same set.
func findRecordings(root, pattern string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	return files, nil
}

// runIndex extracts the 0-based run index from a recording filename such as
// S001R04.edf (run 4, index 3). The number is whatever follows the first "R"
// in the base name.
func runIndex(file string) (int, error) {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "R")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: no run number in %s", ErrBadRunIndex, file)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrBadRunIndex, file, err)
	}
	return n - 1, nil
}

// taskLabel looks up the task performed in a run.
func taskLabel(tasks []string, run int) (string, error) {
	if run < 0 || run >= len(tasks) {
		return "", fmt.Errorf("%w: %d outside task table of %d runs", ErrBadRunIndex, run, len(tasks))
	}
	return tasks[run], nil
}

// displayName renders a recording path relative to root in the "./dir/file"
// form used in the Filename column.
func displayName(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(file)
	}
	return "./" + filepath.ToSlash(rel)
}

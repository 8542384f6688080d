package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

var csvHeader = []string{"Filename", "Task", "Run", "Code", "EEG"}

// Row is one CSV record.
type Row struct {
	Filename string
	Task     string
	Run      int
	Code     string
	EEG      [][]float64
}

// CSVWriter writes rows to a single output file. Records end in CRLF while
// newlines inside quoted fields are written as a bare LF.
type CSVWriter struct {
	path string
	f    *os.File
	buf  bytes.Buffer
	w    *csv.Writer // encodes one record into buf
	rows int
}

// CreateCSV truncates or creates path and writes the header row.
func CreateCSV(path string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	c := &CSVWriter{path: path, f: f}
	c.w = csv.NewWriter(&c.buf)
	if err := c.writeRecord(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// Write appends a row and flushes it to the file.
func (c *CSVWriter) Write(row Row) error {
	record := []string{
		row.Filename,
		row.Task,
		strconv.Itoa(row.Run),
		row.Code,
		formatMatrix(row.EEG),
	}
	if err := c.writeRecord(record); err != nil {
		return err
	}
	c.rows++
	return nil
}

// Rows returns the number of data rows written.
func (c *CSVWriter) Rows() int {
	return c.rows
}

// Close closes the file. Every row is already on disk.
func (c *CSVWriter) Close() error {
	return c.f.Close()
}

func (c *CSVWriter) writeRecord(record []string) error {
	c.buf.Reset()
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	// swap the record's trailing LF for CRLF
	line := c.buf.Bytes()
	line = append(line[:len(line)-1], '\r', '\n')
	if _, err := c.f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	return nil
}

// formatMatrix renders a matrix as nested brackets, one row per line:
//
//	[[0.1 -1.2]
//	 [2.5 nan]]
func formatMatrix(m [][]float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, row := range m {
		if i > 0 {
			sb.WriteString("\n ")
		}
		sb.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(formatValue(v))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

func formatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

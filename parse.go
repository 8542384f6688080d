package main

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ishiikurisu/edf"
)

// Annotation is a labeled event inside a recording.
type Annotation struct {
	Onset    float64 // seconds from recording start
	Duration float64 // seconds
	Label    string
}

// Recording is a decoded EDF file.
type Recording struct {
	Path        string
	Start       time.Time
	SampleRate  float64 // Hz, taken from the first signal
	Labels      []string
	Signals     [][]float64
	Annotations []Annotation
}

// Channels returns the number of signal channels.
func (r *Recording) Channels() int {
	return len(r.Signals)
}

// Decoder turns an EDF file into a Recording.
type Decoder interface {
	Decode(file string) (*Recording, error)
}

// edfDecoder decodes files with the ishiikurisu/edf reader.
type edfDecoder struct{}

func (edfDecoder) Decode(file string) (rec *Recording, err error) {
	slog.Debug("Parsing recording", "file", file)
	// the edf reader panics on truncated or malformed files
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("decode %s: %v", file, r)
		}
	}()

	data := edf.ReadFile(file)
	if err := checkSize(file, data); err != nil {
		return nil, err
	}
	start, err := time.ParseInLocation("02.01.06 15.04.05",
		strings.TrimSpace(data.Header["startdate"])+" "+strings.TrimSpace(data.Header["starttime"]), time.Local)
	if err != nil {
		return nil, fmt.Errorf("decode %s: start time: %w", file, err)
	}
	recordDuration := data.GetDuration()
	if recordDuration <= 0 {
		return nil, fmt.Errorf("decode %s: invalid data record duration %v", file, recordDuration)
	}

	rec = &Recording{
		Path: file,
		// GetSampling is the number of samples per data record of the first signal
		SampleRate: float64(data.GetSampling()) / recordDuration,
		Start:      start,
	}
	labels := data.GetLabels()
	for i, series := range data.PhysicalRecords {
		name := ""
		if i < len(labels) {
			name = strings.TrimSpace(labels[i])
		}
		if name == "EDF Annotations" || name == "Crc16" {
			continue
		}
		rec.Labels = append(rec.Labels, name)
		rec.Signals = append(rec.Signals, series)
	}
	if notes := data.WriteNotes(); notes != "" {
		rec.Annotations = parseAnnotations(notes)
	}

	samples := 0
	if rec.Channels() > 0 {
		samples = len(rec.Signals[0])
	}
	slog.Debug("Decoded recording",
		"file", file,
		"channels", rec.Channels(),
		"labels", rec.Labels,
		"samples", humanize.Comma(int64(samples)),
		"sample_rate", rec.SampleRate,
		"annotations", len(rec.Annotations))
	return rec, nil
}

// checkSize fails when the file is shorter than its header promises. The edf
// reader zero-fills missing data records instead of reporting them.
func checkSize(file string, data edf.Edf) error {
	info, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("decode %s: %w", file, err)
	}
	signals := data.GetNumberSignals()
	want := int64(256*(signals+1)) + 2*int64(data.GetDataRecords())*int64(edf.Sigma(data.GetNumberSamples()))
	if info.Size() < want {
		return fmt.Errorf("decode %s: truncated: %s of %s", file,
			humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(want)))
	}
	return nil
}

var annotationRE = regexp.MustCompile(`^\+([\d.]+)\s+([\d.]+)\s+(.+?)\s*$`)

// parseAnnotations reads annotation lines of the form "+onset duration label".
// Raw EDF+ time-stamped annotation lists use 0x15 and 0x14 as separators and
// NUL between lists; both forms are accepted. Entries without a duration
// (timekeeping annotations) are skipped. Order is preserved.
func parseAnnotations(text string) []Annotation {
	text = strings.NewReplacer("\x15", " ", "\x14", " ", "\x00", "\n").Replace(text)
	out := make([]Annotation, 0, 32)
	for _, line := range strings.Split(text, "\n") {
		match := annotationRE.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		onset, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		duration, err := strconv.ParseFloat(match[2], 64)
		if err != nil {
			continue
		}
		label := match[3]
		if label == "Recording starts" {
			continue
		}
		out = append(out, Annotation{Onset: onset, Duration: duration, Label: label})
	}
	return out
}

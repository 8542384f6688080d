package main

import (
	"errors"
	"fmt"
	"math"
)

// ErrNegativeWindow is returned for annotations shorter than two samples.
var ErrNegativeWindow = errors.New("window: annotation shorter than two samples")

// Window is the normalized signal matrix cut out for one annotation.
type Window struct {
	Annotation Annotation
	Begin      int         // first sample index
	Data       [][]float64 // channels x samples
	// NaNChannels counts channels whose slice had zero variance and
	// therefore normalized to NaN.
	NaNChannels int
}

// Samples returns the window length in samples.
func (w Window) Samples() int {
	if len(w.Data) == 0 {
		return 0
	}
	return len(w.Data[0])
}

// windowLength is ceil(duration*rate) minus a fixed two-sample trim.
func windowLength(duration, rate float64) int {
	return int(math.Ceil(duration*rate)) - 2
}

// extractWindow cuts [begin, begin+length) out of every channel, where begin
// is onset*rate truncated to an integer. Ranges past the end of a channel are
// clipped; the matrix row keeps trailing zeros in that case.
func extractWindow(signals [][]float64, rate float64, a Annotation) (Window, error) {
	length := windowLength(a.Duration, rate)
	if length < 0 {
		return Window{}, fmt.Errorf("%w: %s at %.3fs lasts %.3fs", ErrNegativeWindow, a.Label, a.Onset, a.Duration)
	}
	begin := int(a.Onset * rate)

	w := Window{
		Annotation: a,
		Begin:      begin,
		Data:       make([][]float64, len(signals)),
	}
	for ch, series := range signals {
		row := make([]float64, length)
		slice := clip(series, begin, begin+length)
		normalized, degenerate := normalize(slice)
		if degenerate {
			w.NaNChannels++
		}
		copy(row, normalized)
		w.Data[ch] = row
	}
	return w, nil
}

// windows computes one window per annotation, in annotation order.
func windows(rec *Recording) ([]Window, error) {
	out := make([]Window, 0, len(rec.Annotations))
	for _, a := range rec.Annotations {
		w, err := extractWindow(rec.Signals, rec.SampleRate, a)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func clip(series []float64, begin, end int) []float64 {
	if begin < 0 {
		begin = 0
	}
	if begin > len(series) {
		begin = len(series)
	}
	if end > len(series) {
		end = len(series)
	}
	if end < begin {
		end = begin
	}
	return series[begin:end]
}

// normalize returns (x - mean) / std using the population standard deviation.
// A non-empty slice with zero variance divides by zero and comes back as NaN;
// degenerate reports that case.
func normalize(x []float64) (out []float64, degenerate bool) {
	if len(x) == 0 {
		return nil, false
	}
	mean, std := meanStd(x)
	out = make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out, std == 0
}

func meanStd(x []float64) (mean, std float64) {
	n := float64(len(x))
	for _, v := range x {
		mean += v
	}
	mean /= n
	var ss float64
	for _, v := range x {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressOptions configures a Reporter.
type ProgressOptions struct {
	// Label prefixes every progress line.
	Label string

	// Bytes renders counts as byte sizes instead of plain item counts.
	Bytes bool

	// Total is the expected final count, or <= 0 if unknown.
	Total int64

	// Output is where progress lines go.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often the line is redrawn.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter draws a single self-overwriting progress line.
type Reporter struct {
	opts ProgressOptions

	current atomic.Int64
	total   atomic.Int64

	mu        sync.Mutex
	startTime time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	stopped   bool
}

// NewReporter creates a reporter. Nothing is printed until Start.
func NewReporter(opts ProgressOptions) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}
	r := &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	r.total.Store(opts.Total)
	return r
}

// Start begins periodic redraws.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.startTime = time.Now()
	go r.updateLoop()
}

// Stop prints the final line and waits for the redraw loop to exit.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// Add advances the counter by delta. Negative deltas are ignored so the
// counter never moves backwards.
func (r *Reporter) Add(delta int64) {
	if delta > 0 {
		r.current.Add(delta)
	}
}

// SetTotal updates the expected final count.
func (r *Reporter) SetTotal(total int64) {
	r.total.Store(total)
}

// Count returns the current counter value.
func (r *Reporter) Count() int64 {
	return r.current.Load()
}

// Total returns the expected final count, or <= 0 if unknown.
func (r *Reporter) Total() int64 {
	return r.total.Load()
}

// UpdateTo is a ReportHook: it receives cumulative progress as a block count
// and block size and feeds only the difference to the counter. The count is
// clamped to the total when the total is known, since the last block is
// usually short.
func (r *Reporter) UpdateTo(blocks int64, blockSize int, totalSize int64) {
	if totalSize >= 0 {
		r.SetTotal(totalSize)
	}
	n := blocks * int64(blockSize)
	if total := r.Total(); total > 0 && n > total {
		n = total
	}
	r.Add(n - r.Count())
}

func (r *Reporter) updateLoop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			fmt.Fprintf(r.opts.Output, "\r%s in %s    \n", r.line(), formatDuration(time.Since(r.startTime)))
			return
		case <-ticker.C:
			fmt.Fprintf(r.opts.Output, "\r%s    ", r.line())
		}
	}
}

func (r *Reporter) line() string {
	current := r.Count()
	total := r.Total()
	if total <= 0 {
		return fmt.Sprintf("[%s] %s", r.opts.Label, r.format(current))
	}
	percent := float64(current) / float64(total) * 100
	return fmt.Sprintf("[%s] %s / %s (%.1f%%)", r.opts.Label, r.format(current), r.format(total), percent)
}

func (r *Reporter) format(n int64) string {
	if r.opts.Bytes {
		return humanize.Bytes(uint64(n))
	}
	return humanize.Comma(n)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm %ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

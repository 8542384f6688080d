package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// blockSize is the read size for the response body and the block unit passed
// to a ReportHook.
const blockSize = 8 * 1024

// HTTP status failures.
var (
	ErrNotFound     = errors.New("download: resource not found")
	ErrForbidden    = errors.New("download: access forbidden")
	ErrUnauthorized = errors.New("download: unauthorized")
	ErrServerError  = errors.New("download: server error")
)

// ReportHook receives cumulative transfer progress: the number of blocks read
// so far, the block size, and the total size from the response headers (-1 if
// the server did not send one). It is called once before the first block.
type ReportHook func(blocks int64, blockSize int, totalSize int64)

// DownloadOptions configures a Downloader.
type DownloadOptions struct {
	// Timeout bounds the whole request, 0 disables it.
	Timeout time.Duration

	// RateLimit caps throughput in bytes per second, 0 disables it.
	RateLimit int64
}

// Downloader fetches a single URL to a local file.
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewDownloader creates a Downloader.
func NewDownloader(opts DownloadOptions) *Downloader {
	d := &Downloader{
		client: &http.Client{Timeout: opts.Timeout},
	}
	if opts.RateLimit > 0 {
		// reads never exceed one block, so that is the burst
		d.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), blockSize)
	}
	return d
}

// Download GETs url into path, truncating any existing file. It returns the
// number of bytes written. There is no retry and no resume; a failed transfer
// leaves a partial file behind.
func (d *Downloader) Download(ctx context.Context, url, path string, hook ReportHook) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return 0, fmt.Errorf("get %s: %w", url, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	total := resp.ContentLength
	if hook == nil {
		hook = func(int64, int, int64) {}
	}
	hook(0, blockSize, total)

	buf := make([]byte, blockSize)
	var written, blocks int64
	for {
		n, readErr := io.ReadFull(resp.Body, buf)
		if n > 0 {
			if d.limiter != nil {
				if err := d.limiter.WaitN(ctx, n); err != nil {
					return written, err
				}
			}
			nw, err := f.Write(buf[:n])
			written += int64(nw)
			if err != nil {
				return written, fmt.Errorf("write %s: %w", path, err)
			}
			blocks++
			hook(blocks, blockSize, total)
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return written, fmt.Errorf("read %s: %w", url, readErr)
		}
	}

	if total >= 0 && written < total {
		return written, fmt.Errorf("get %s: retrieval incomplete: got %d out of %d bytes", url, written, total)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close %s: %w", path, err)
	}
	return written, nil
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("download: unexpected status code: %d", code)
	}
}

package core

// streaming.go wraps a feed body before it is parsed:
//
//   - limitReader: fails with ErrFeedTooLarge past the configured size
//   - CountingReader: tracks bytes read and reports progress
//   - UTF-8 decoding: invalid sequences become U+FFFD and a BOM is dropped
//
// Use ReadBody to apply all three in the correct order.

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ProgressFunc receives the bytes read so far and the expected total
// (0 when the server sent no Content-Length).
type ProgressFunc func(read, total int64)

// progressInterval rate-limits ProgressFunc calls.
const progressInterval = 100 * time.Millisecond

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // If known (0 if unknown)

	onProgress ProgressFunc
	lastReport time.Time
}

// NewCountingReader creates a counting reader with optional total size and
// progress callback.
func NewCountingReader(r io.Reader, total int64, fn ProgressFunc) *CountingReader {
	return &CountingReader{
		reader:     r,
		Total:      total,
		onProgress: fn,
	}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	if r.onProgress != nil && (err != nil || time.Since(r.lastReport) >= progressInterval) {
		r.lastReport = time.Now()
		r.onProgress(r.BytesRead, r.Total)
	}
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	p := int(r.BytesRead * 100 / r.Total)
	if p > 100 {
		p = 100
	}
	return p
}

// limitReader is io.LimitReader that reports overflow instead of a silent EOF.
type limitReader struct {
	reader    io.Reader
	remaining int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFeedTooLarge
	}
	// Allow one byte past the limit so overflow can be told apart from a body
	// of exactly max bytes.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.reader.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n + int(l.remaining), ErrFeedTooLarge
	}
	return n, err
}

// ReadBody reads r to the end and returns it as valid UTF-8 text along with
// the number of raw bytes consumed. maxBytes <= 0 disables the size limit.
func ReadBody(r io.Reader, total, maxBytes int64, fn ProgressFunc) (string, int64, error) {
	if maxBytes > 0 {
		if total > maxBytes {
			return "", 0, fmt.Errorf("content length %d: %w", total, ErrFeedTooLarge)
		}
		r = &limitReader{reader: r, remaining: maxBytes}
	}

	counter := NewCountingReader(r, total, fn)
	decoded := transform.NewReader(counter, unicode.UTF8BOM.NewDecoder())

	var b strings.Builder
	if total > 0 {
		b.Grow(int(total))
	}
	if _, err := io.Copy(&b, decoded); err != nil {
		return "", counter.BytesRead, fmt.Errorf("read body: %w", err)
	}
	return b.String(), counter.BytesRead, nil
}

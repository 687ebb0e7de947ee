package core

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Fetcher downloads the raw feed text.
type Fetcher interface {
	Fetch(ctx context.Context, progress ProgressFunc) (string, error)
}

// HTTPFetcher GETs a CSV feed over HTTP(S).
type HTTPFetcher struct {
	URL      string
	Client   *http.Client
	MaxBytes int64 // 0 disables the limit
}

// NewHTTPFetcher returns a fetcher for url. A zero timeout means the request
// is bounded only by the caller's context.
func NewHTTPFetcher(url string, timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		URL:      url,
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

// Fetch performs the request. Every failure is a *NetworkError: transport
// errors, a non-2xx status, a content type without text/csv, and bodies
// over MaxBytes.
func (f *HTTPFetcher) Fetch(ctx context.Context, progress ProgressFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return "", &NetworkError{URL: f.URL, Err: err}
	}
	req.Header.Set("Accept", "text/csv")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &NetworkError{URL: f.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NetworkError{URL: f.URL, StatusCode: resp.StatusCode, Err: ErrBadStatus}
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(ct), "text/csv") {
		return "", &NetworkError{URL: f.URL, StatusCode: resp.StatusCode, ContentType: ct, Err: ErrNotCSV}
	}

	text, _, err := ReadBody(resp.Body, resp.ContentLength, f.MaxBytes, progress)
	if err != nil {
		return "", &NetworkError{URL: f.URL, StatusCode: resp.StatusCode, ContentType: ct, Err: err}
	}
	return text, nil
}

// Package media reads performance media: thumbnails over HTTP, audio
// through ffmpeg and landmark sequences from JSON.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/talentscore/pkg/metrics"
)

const (
	defaultFetchTimeout = 10 * time.Second
	defaultMaxImage     = 8 << 20
	sniffLen            = 512
)

// Fetch outcomes reported to metrics.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeStatus   = "bad_status"
	outcomeTooLarge = "too_large"
	outcomeNotImage = "not_image"
)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxBytes caps the accepted image size.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithFetchTimeout bounds a single fetch.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// Fetcher downloads thumbnails and encodes them as data URLs.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	timeout  time.Duration
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{},
		maxBytes: defaultMaxImage,
		timeout:  defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DataURL implements scoring.ImageInliner.
func (f *Fetcher) DataURL(ctx context.Context, url string) (string, error) {
	body, mime, err := f.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(body), nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.RecordMediaFetch(outcomeError, 0)
		return nil, "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordMediaFetch(outcomeError, 0)
		return nil, "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordMediaFetch(outcomeStatus, 0)
		return nil, "", fmt.Errorf("%w: http %d", ErrFetch, resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		metrics.RecordMediaFetch(outcomeTooLarge, 0)
		return nil, "", fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		metrics.RecordMediaFetch(outcomeError, 0)
		return nil, "", fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBytes {
		metrics.RecordMediaFetch(outcomeTooLarge, 0)
		return nil, "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes)
	}

	mime := contentType(resp.Header.Get("Content-Type"), body)
	if !strings.HasPrefix(mime, "image/") {
		metrics.RecordMediaFetch(outcomeNotImage, 0)
		return nil, "", fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	metrics.RecordMediaFetch(outcomeOK, len(body))
	return body, mime, nil
}

// contentType prefers the declared image type and sniffs otherwise.
func contentType(declared string, body []byte) string {
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if strings.HasPrefix(declared, "image/") {
		return declared
	}
	return strings.Split(http.DetectContentType(body[:min(len(body), sniffLen)]), ";")[0]
}

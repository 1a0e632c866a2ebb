package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Fetcher retrieves a catalog document as text.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

// FetchText calls f.
func (f FetcherFunc) FetchText(ctx context.Context, url string) (string, error) {
	return f(ctx, url)
}

var (
	// ErrNotText is returned when a fetched document does not look like text.
	ErrNotText = errors.New("response is not text")
	// ErrTooLarge is returned when a document exceeds the size limit.
	ErrTooLarge = errors.New("document exceeds size limit")
)

// maxDocumentBytes bounds a single catalog download. The largest CelesTrak
// category files are a few hundred kilobytes.
const maxDocumentBytes = 16 << 20

// HTTPFetcher fetches catalogs over HTTP(S). Anything that is not an
// http:// or https:// URL is treated as a local file, with an optional
// file:// prefix.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
// A non-positive timeout leaves requests bounded only by their context.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &HTTPFetcher{client: client, maxBytes: maxDocumentBytes}
}

// FetchText implements Fetcher.
func (f *HTTPFetcher) FetchText(ctx context.Context, url string) (string, error) {
	var (
		body []byte
		err  error
	)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		body, err = f.fetchRemote(ctx, url)
	} else {
		body, err = f.readFile(strings.TrimPrefix(url, "file://"))
	}
	if err != nil {
		return "", err
	}

	if !isText(body) {
		return "", fmt.Errorf("fetch %s: %w (%s)", url, ErrNotText, mimetype.Detect(body).String())
	}
	return string(body), nil
}

func (f *HTTPFetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	return f.readLimited(resp.Body, url)
}

func (f *HTTPFetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return f.readLimited(file, path)
}

// readLimited reads one byte past the limit so an oversized document is
// rejected rather than searched in truncated form.
func (f *HTTPFetcher) readLimited(r io.Reader, name string) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read %s: %w (%d bytes)", name, ErrTooLarge, f.maxBytes)
	}
	return body, nil
}

// isText reports whether body sniffs as text/plain or one of its
// descendants (html, csv, ...). Empty bodies count as text.
func isText(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	for m := mimetype.Detect(body); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

package processor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Fetcher retrieves a dataset document from its source URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads dataset documents over HTTP.
type HTTPFetcher struct {
	client  *http.Client
	maxSize int64
}

// NewHTTPFetcher creates a fetcher with the given timeout and response size
// cap in bytes. Zero values fall back to defaults.
func NewHTTPFetcher(timeout time.Duration, maxSize int64) *HTTPFetcher {
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	if maxSize == 0 {
		maxSize = 512 << 20 // 512MB; registry documents can be very large
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

// Fetch downloads the document at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build dataset request")
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch dataset document")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching dataset document", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dataset document")
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("dataset document exceeds %d byte limit", f.maxSize)
	}
	return body, nil
}

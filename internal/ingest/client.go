package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxExportBytes caps how much of an export body is read.
const maxExportBytes = 32 << 20

var (
	// ErrFetchFailed marks every failure to obtain the export. Callers test for
	// it with errors.Is to tell an unreachable source from bad data.
	ErrFetchFailed = errors.New("crm export unreachable")
	ErrEmptySource = errors.New("empty source url")
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &http.Client{Timeout: timeout}
}

// FetchError describes a failed export fetch. StatusCode is zero when the
// request never produced a response.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: non-2xx: %d body=%s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

// Fetcher downloads the raw export text. It makes exactly one request per
// call; retry policy belongs to whoever calls it. The optional limiter keeps
// upstream traffic polite when many callers miss the cache at once.
type Fetcher struct {
	c       HTTPClient
	url     string
	limiter *rate.Limiter
}

func NewFetcher(c HTTPClient, url string, limiter *rate.Limiter) *Fetcher {
	return &Fetcher{c: c, url: url, limiter: limiter}
}

func (f *Fetcher) URL() string { return f.url }

func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	if f.url == "" {
		return "", &FetchError{Err: ErrEmptySource}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", &FetchError{URL: f.url, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", &FetchError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := f.c.Do(req)
	if err != nil {
		return "", &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &FetchError{URL: f.url, StatusCode: resp.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes))
	if err != nil {
		return "", &FetchError{URL: f.url, Err: err}
	}
	return string(b), nil
}

package tilecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gogpu/gsts/tile"
)

// Fetcher loads the encoded bytes of a source tile.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, locator string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return f(ctx, locator)
}

// ErrStatus is wrapped by HTTPFetcher errors for non-200 responses.
var ErrStatus = errors.New("tilecache: bad status code")

// HTTP fetcher defaults.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultRetries   = 3
	DefaultUserAgent = "gsts/1.0"
	maxTileBytes     = 32 << 20
)

// HTTPFetcher fetches tiles over HTTP(S).
type HTTPFetcher struct {
	// Client performs requests. Nil means a client with DefaultTimeout.
	Client *http.Client

	// Retries is the number of attempts for transport errors and 5xx
	// responses. Values below 1 mean one attempt.
	Retries int

	// Backoff is the delay before the second attempt, doubled after each
	// further failure.
	Backoff time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// NewHTTPFetcher returns an HTTPFetcher with the default settings.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: DefaultTimeout},
		Retries:   DefaultRetries,
		Backoff:   200 * time.Millisecond,
		UserAgent: DefaultUserAgent,
	}
}

// Fetch implements Fetcher. A 404 fails immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	attempts := max(f.Retries, 1)
	backoff := f.Backoff

	var err error
	for i := range attempts {
		if i > 0 && backoff > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		var data []byte
		var retry bool
		data, retry, err = f.get(ctx, client, url)
		if err == nil {
			return data, nil
		}
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, err
}

func (f *HTTPFetcher) get(ctx context.Context, client *http.Client, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("tilecache: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("tilecache: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode >= 500, fmt.Errorf("%w: %d for %s", ErrStatus, resp.StatusCode, url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		return nil, true, fmt.Errorf("tilecache: read %s: %w", url, err)
	}
	return data, false, nil
}

// FileFetcher reads tiles from the local filesystem. Locators are paths,
// optionally prefixed with file://.
type FileFetcher struct{}

// Fetch implements Fetcher.
func (FileFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(strings.TrimPrefix(locator, "file://"))
	if err != nil {
		return nil, fmt.Errorf("tilecache: %w", err)
	}
	return data, nil
}

// NewFetcher picks a fetcher for the locators tmpl produces: HTTPFetcher for
// http and https URLs, FileFetcher otherwise.
func NewFetcher(tmpl tile.Template) Fetcher {
	s := strings.ToLower(string(tmpl))
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return NewHTTPFetcher()
	}
	return FileFetcher{}
}

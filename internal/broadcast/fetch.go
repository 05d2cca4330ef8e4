package broadcast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"estatebot/pkg/logx"
)

// minImageBytes guards against empty or truncated downloads being pushed
// to the platform as photos.
const minImageBytes = 100

// ImageFetcher downloads image bytes for URLs that have no native file
// reference.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches with a bounded number of attempts and a linearly
// increasing backoff between them.
type HTTPFetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	log     logx.Logger
}

func NewHTTPFetcher(timeout time.Duration, retries int, log logx.Logger) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if retries <= 0 {
		retries = 3
	}
	return &HTTPFetcher{
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		backoff: time.Second,
		log:     log,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var last error
	for attempt := 1; attempt <= f.retries; attempt++ {
		b, err := f.fetchOnce(ctx, url)
		if err == nil {
			return b, nil
		}
		last = err
		f.log.Warn("image fetch attempt failed",
			logx.String("url", url),
			logx.Int("attempt", attempt),
			logx.Err(err))
		if attempt < f.retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.backoff * time.Duration(attempt)):
			}
		}
	}
	return nil, last
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(b) < minImageBytes {
		return nil, fmt.Errorf("file too small (%d bytes)", len(b))
	}
	return b, nil
}

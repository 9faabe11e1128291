package rss

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-blocks/pkg/retry"
	"github.com/mmcdole/gofeed"
)

// ErrFeedURLRequired is returned by fetchers asked for an empty URL.
var ErrFeedURLRequired = errors.New("rss: feed url is required")

// Fetcher retrieves and parses a feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*gofeed.Feed, error)
}

// HTTPFetcher downloads feeds with gofeed over an http.Client. Server errors
// and transport failures are retried up to Attempts times.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	Attempts  int
	Backoff   retry.Backoff
}

var _ Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher returns a fetcher using a client with the given overall
// timeout. Per-render deadlines come from the caller's context.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: "go-blocks/rss",
		Attempts:  1,
		Backoff:   retry.DefaultBackoff(),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrFeedURLRequired
	}
	parser := gofeed.NewParser()
	policy := retry.Policy{Attempts: 1, Retryable: retryable}
	if f != nil {
		if f.Client != nil {
			parser.Client = f.Client
		}
		if f.UserAgent != "" {
			parser.UserAgent = f.UserAgent
		}
		policy.Attempts = f.Attempts
		policy.Backoff = f.Backoff
	}

	var feed *gofeed.Feed
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		feed, err = parser.ParseURLWithContext(url, ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return feed, nil
}

// retryable reports whether err looks transient: 5xx and 429 responses or
// transport failures. Parse errors and other statuses are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 || httpErr.StatusCode == http.StatusTooManyRequests
	}
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return false
	}
	return true
}

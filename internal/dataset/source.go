package dataset

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Fetcher downloads remote datasets. *httputil.Client satisfies it.
type Fetcher interface {
	GetBody(ctx context.Context, url string) (io.ReadCloser, error)
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Open returns a reader for a local path or an http(s) URL.
// fetcher may be nil when only local files are expected.
func Open(ctx context.Context, source string, fetcher Fetcher) (io.ReadCloser, error) {
	if source == "" {
		return nil, fmt.Errorf("open dataset: empty source")
	}

	if IsRemote(source) {
		if fetcher == nil {
			return nil, fmt.Errorf("open dataset %s: no HTTP client configured", source)
		}
		body, err := fetcher.GetBody(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("fetch dataset %s: %w", source, err)
		}
		return body, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	return f, nil
}

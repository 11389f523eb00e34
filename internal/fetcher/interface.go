package fetcher

import "context"

// PageFetcher returns the text content of a monitored page. A failed or
// empty fetch is scoped to the source being scanned; it never aborts a
// whole discovery run.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// LocalFetcher downloads a page directly and extracts its visible text
// with goquery. It needs no external scraping credential and is meant for
// portals that render listings as plain HTML.
type LocalFetcher struct {
	client *resty.Client
}

// Ensure LocalFetcher implements PageFetcher
var _ PageFetcher = (*LocalFetcher)(nil)

// NewLocalFetcher creates a direct HTTP page fetcher.
func NewLocalFetcher() *LocalFetcher {
	return &LocalFetcher{
		client: resty.New().
			SetTimeout(30 * time.Second).
			SetHeader("User-Agent", "RFP-Discovery-Bot/1.0"),
	}
}

// Fetch downloads the page and returns its text content with scripts,
// styles and markup stripped.
func (f *LocalFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)

	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("fetch of %s returned status %d", url, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}

	doc.Find("script, style, noscript, nav, footer").Remove()

	text := doc.Find("body").Text()
	return collapseWhitespace(text), nil
}

func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

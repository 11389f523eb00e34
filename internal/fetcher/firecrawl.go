package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FirecrawlFetcher fetches page content through the Firecrawl scraping
// API, which returns the main content of a page as markdown.
type FirecrawlFetcher struct {
	apiKey  string
	baseURL string
	client  *resty.Client
}

// Ensure FirecrawlFetcher implements PageFetcher
var _ PageFetcher = (*FirecrawlFetcher)(nil)

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlResponse struct {
	Data struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Markdown string `json:"markdown"`
}

// NewFirecrawlFetcher creates a Firecrawl-backed page fetcher.
func NewFirecrawlFetcher(apiKey, baseURL string) *FirecrawlFetcher {
	return &FirecrawlFetcher{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  resty.New().SetTimeout(30 * time.Second),
	}
}

// Fetch scrapes the given URL and returns its markdown content.
func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+f.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(firecrawlRequest{
			URL:             url,
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		}).
		Post(f.baseURL + "/v1/scrape")

	if err != nil {
		return "", fmt.Errorf("failed to scrape %s: %w", url, err)
	}

	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("scrape of %s returned status %d: %s", url, resp.StatusCode(), string(resp.Body()))
	}

	var scrapeResp firecrawlResponse
	if err := json.Unmarshal(resp.Body(), &scrapeResp); err != nil {
		return "", fmt.Errorf("failed to parse scrape response for %s: %w", url, err)
	}

	// Newer API versions nest the content under "data"
	markdown := scrapeResp.Data.Markdown
	if markdown == "" {
		markdown = scrapeResp.Markdown
	}

	return markdown, nil
}

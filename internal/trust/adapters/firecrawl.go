package adapters

import (
	"context"
	"errors"

	"octopus/internal/trust/agents"
	"octopus/pkg/firecrawl"
)

const sitemapLimit = 50

// FirecrawlScraper implements agents.SiteScraper with a scrape of the home
// page followed by a site map for the page count.
type FirecrawlScraper struct {
	client firecrawl.Client
}

func NewFirecrawlScraper(client firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

func (s *FirecrawlScraper) Scrape(ctx context.Context, website string) (*agents.SiteSnapshot, error) {
	page, err := s.client.Scrape(ctx, firecrawl.ScrapeRequest{URL: website, Formats: []string{"markdown"}})
	if err != nil {
		return nil, portError(ctx, err)
	}
	snap := &agents.SiteSnapshot{
		FinalURL:   page.Data.Metadata.SourceURL,
		StatusCode: page.Data.Metadata.StatusCode,
		Content:    page.Data.Markdown,
		PageCount:  1,
	}

	links, err := s.client.Map(ctx, firecrawl.MapRequest{URL: website, Limit: sitemapLimit})
	if err != nil {
		// The home page alone is still a usable signal.
		return snap, nil
	}
	if len(links.Links) > snap.PageCount {
		snap.PageCount = len(links.Links)
	}
	return snap, nil
}

func portError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr *firecrawl.APIError
	if errors.As(err, &apiErr) {
		return &agents.PortError{Port: "firecrawl", StatusCode: apiErr.StatusCode, Err: err}
	}
	return &agents.PortError{Port: "firecrawl", Err: err}
}

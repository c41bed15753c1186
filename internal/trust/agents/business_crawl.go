package agents

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"octopus/internal/trust/models"
	"octopus/pkg/email"
)

const minHealthySitePages = 3

var nonDigits = regexp.MustCompile(`\D`)

// BusinessCrawl checks that the provider's website exists, is served over
// HTTPS and shows the contact details the provider claimed.
type BusinessCrawl struct {
	scraper SiteScraper
}

func NewBusinessCrawl(scraper SiteScraper) *BusinessCrawl {
	return &BusinessCrawl{scraper: scraper}
}

func (a *BusinessCrawl) Kind() models.AgentKind { return models.AgentBusinessCrawl }

func (a *BusinessCrawl) Evaluate(ctx context.Context, subject Subject) (*Result, error) {
	website := strings.TrimSpace(subject.Website)
	if website == "" {
		return &Result{
			Kind:       models.AgentBusinessCrawl,
			Score:      0,
			Factors:    map[string]any{"website_exists": false},
			Confidence: 0.5,
		}, nil
	}
	if a.scraper == nil {
		return nil, NewAgentError(models.AgentBusinessCrawl, CategoryNotConfigured, "no site scraper", nil)
	}

	snap, err := a.scraper.Scrape(ctx, website)
	if err != nil {
		return nil, Classify(models.AgentBusinessCrawl, err)
	}
	if snap == nil {
		return nil, NewAgentError(models.AgentBusinessCrawl, CategoryBadData, "empty crawl snapshot", nil)
	}

	final := snap.FinalURL
	if final == "" {
		final = website
	}
	https := false
	host := ""
	if u, err := url.Parse(final); err == nil {
		https = strings.EqualFold(u.Scheme, "https")
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	domainMatch := host != "" && email.Domain(subject.Email) == host
	statusOK := snap.StatusCode >= 200 && snap.StatusCode < 300
	content := strings.ToLower(snap.Content)
	emailMatch := subject.Email != "" && strings.Contains(content, strings.ToLower(strings.TrimSpace(subject.Email)))
	phoneMatch := phoneOnPage(subject.Phone, snap.Content)

	score := 25
	if domainMatch {
		score += 5
	}
	if https {
		score += 15
	}
	if statusOK {
		score += 15
	}
	if emailMatch {
		score += 15
	}
	if phoneMatch {
		score += 15
	}
	if snap.PageCount >= minHealthySitePages {
		score += 10
	}

	return &Result{
		Kind:  models.AgentBusinessCrawl,
		Score: score,
		Factors: map[string]any{
			"website_exists":     true,
			"ssl_valid":          https,
			"status_code":        snap.StatusCode,
			"email_match":        emailMatch,
			"phone_match":        phoneMatch,
			"contact_match":      emailMatch || phoneMatch,
			"email_domain_match": domainMatch,
			"page_count":         snap.PageCount,
		},
		Confidence: 0.8,
	}, nil
}

// phoneOnPage compares digits only so formatting differences do not matter.
func phoneOnPage(phone, content string) bool {
	digits := nonDigits.ReplaceAllString(phone, "")
	if len(digits) < 7 {
		return false
	}
	return strings.Contains(nonDigits.ReplaceAllString(content, ""), digits)
}

package agents

import (
	"context"
	"time"
)

// SiteScraper fetches a business website.
type SiteScraper interface {
	Scrape(ctx context.Context, website string) (*SiteSnapshot, error)
}

// SiteSnapshot is what a crawl learned about a site.
type SiteSnapshot struct {
	FinalURL   string
	StatusCode int
	Content    string
	PageCount  int
}

// ReviewSource returns the public reviews of a business across platforms.
type ReviewSource interface {
	Reviews(ctx context.Context, subject Subject) ([]Review, error)
}

// Review is one rating on one platform.
type Review struct {
	Platform string
	Rating   int
	Text     string
	PostedAt time.Time
}

// TextClassifier estimates which review texts are machine-generated.
type TextClassifier interface {
	// Generated returns one flag per text, in input order.
	Generated(ctx context.Context, texts []string) ([]bool, error)
}

// SocialSearcher reports a business's presence on social platforms.
type SocialSearcher interface {
	Presence(ctx context.Context, subject Subject) ([]SocialProfile, error)
}

// SocialProfile is the footprint found on one platform.
type SocialProfile struct {
	Platform     string
	Found        bool
	Mentions     int
	Followers    int
	LastActivity time.Time
}

// RegistryLookup checks licensing, insurance and background records.
type RegistryLookup interface {
	Lookup(ctx context.Context, subject Subject) (*RegistryRecord, error)
}

// RegistryRecord is the registry answer for a business.
type RegistryRecord struct {
	LicenseNumber    string
	LicenseValid     bool
	LicenseExpiresAt time.Time
	InsuranceCurrent bool
	BackgroundCheck  string
}

// ContributionLedger summarises a provider's community contributions.
type ContributionLedger interface {
	Summary(ctx context.Context, subject Subject, since time.Time) (*ContributionSummary, error)
}

// ContributionSummary aggregates contributions over a period.
type ContributionSummary struct {
	Hours          float64
	Count          int
	VerifiedCount  int
	AverageQuality float64
	LastAt         time.Time
}

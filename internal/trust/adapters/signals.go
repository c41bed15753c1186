package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"octopus/internal/trust/agents"
)

// SignalClient reads review, social and registry signals from a JSON HTTP
// signals service. It implements agents.ReviewSource, agents.SocialSearcher
// and agents.RegistryLookup.
type SignalClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type SignalOption func(*SignalClient)

func WithSignalHTTPClient(hc *http.Client) SignalOption {
	return func(c *SignalClient) {
		c.http = hc
	}
}

func NewSignalClient(baseURL, apiKey string, opts ...SignalOption) *SignalClient {
	c := &SignalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reviewsResponse struct {
	Reviews []struct {
		Platform string    `json:"platform"`
		Rating   int       `json:"rating"`
		Text     string    `json:"text"`
		PostedAt time.Time `json:"posted_at"`
	} `json:"reviews"`
}

func (c *SignalClient) Reviews(ctx context.Context, subject agents.Subject) ([]agents.Review, error) {
	var resp reviewsResponse
	if err := c.get(ctx, "reviews", "/v1/reviews", subject, &resp); err != nil {
		return nil, err
	}
	out := make([]agents.Review, 0, len(resp.Reviews))
	for _, r := range resp.Reviews {
		out = append(out, agents.Review{Platform: r.Platform, Rating: r.Rating, Text: r.Text, PostedAt: r.PostedAt})
	}
	return out, nil
}

type socialResponse struct {
	Profiles []struct {
		Platform     string    `json:"platform"`
		Found        bool      `json:"found"`
		Mentions     int       `json:"mentions"`
		Followers    int       `json:"followers"`
		LastActivity time.Time `json:"last_activity"`
	} `json:"profiles"`
}

func (c *SignalClient) Presence(ctx context.Context, subject agents.Subject) ([]agents.SocialProfile, error) {
	var resp socialResponse
	if err := c.get(ctx, "social", "/v1/social", subject, &resp); err != nil {
		return nil, err
	}
	out := make([]agents.SocialProfile, 0, len(resp.Profiles))
	for _, p := range resp.Profiles {
		out = append(out, agents.SocialProfile{
			Platform:     p.Platform,
			Found:        p.Found,
			Mentions:     p.Mentions,
			Followers:    p.Followers,
			LastActivity: p.LastActivity,
		})
	}
	return out, nil
}

type registryResponse struct {
	LicenseNumber    string    `json:"license_number"`
	LicenseValid     bool      `json:"license_valid"`
	LicenseExpiresAt time.Time `json:"license_expires_at"`
	InsuranceCurrent bool      `json:"insurance_current"`
	BackgroundCheck  string    `json:"background_check"`
}

func (c *SignalClient) Lookup(ctx context.Context, subject agents.Subject) (*agents.RegistryRecord, error) {
	var resp registryResponse
	if err := c.get(ctx, "registry", "/v1/registry", subject, &resp); err != nil {
		return nil, err
	}
	return &agents.RegistryRecord{
		LicenseNumber:    resp.LicenseNumber,
		LicenseValid:     resp.LicenseValid,
		LicenseExpiresAt: resp.LicenseExpiresAt,
		InsuranceCurrent: resp.InsuranceCurrent,
		BackgroundCheck:  resp.BackgroundCheck,
	}, nil
}

func (c *SignalClient) get(ctx context.Context, port, path string, subject agents.Subject, out any) error {
	q := url.Values{}
	q.Set("provider_id", subject.ProviderID.String())
	q.Set("business_name", subject.BusinessName)
	if subject.Website != "" {
		q.Set("website", subject.Website)
	}
	if subject.Email != "" {
		q.Set("email", subject.Email)
	}
	if subject.Phone != "" {
		q.Set("phone", subject.Phone)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", port, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &agents.PortError{Port: port, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &agents.PortError{Port: port, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &agents.PortError{Port: port, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(body)))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &agents.PortError{Port: port, StatusCode: http.StatusUnprocessableEntity, Err: err}
	}
	return nil
}

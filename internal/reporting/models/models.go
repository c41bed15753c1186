// Package models holds the read-only aggregates served to providers and
// operators: per-provider performance and the platform dashboard.
package models

import (
	"math"
	"time"

	booking "octopus/internal/booking/models"
	lead "octopus/internal/lead/models"
	provider "octopus/internal/provider/models"
	trust "octopus/internal/trust/models"
	id "octopus/pkg/domain"
)

// TrustPoint is one entry of a provider's score history.
type TrustPoint struct {
	Score        int            `json:"score"`
	Decision     trust.Decision `json:"decision"`
	Reviewed     bool           `json:"reviewed"`
	CalculatedAt time.Time      `json:"calculated_at"`
}

func NewTrustPoint(s *trust.TrustScore) TrustPoint {
	return TrustPoint{
		Score:        s.Score,
		Decision:     s.Decision,
		Reviewed:     s.ReviewerID != "",
		CalculatedAt: s.CalculatedAt,
	}
}

// ProviderStats is the performance summary for one provider.
type ProviderStats struct {
	ProviderID     id.ProviderID          `json:"provider_id"`
	Status         provider.Status        `json:"status"`
	TrustScore     int                    `json:"trust_score"`
	Leads          map[lead.Status]int    `json:"leads"`
	TotalLeads     int                    `json:"total_leads"`
	ConversionRate float64                `json:"conversion_rate"`
	Bookings       map[booking.Status]int `json:"bookings"`
	Revenue        booking.Revenue        `json:"revenue"`
	TrustHistory   []TrustPoint           `json:"trust_history"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// ConversionRate totals the lead counts and returns the share that reached a
// booking, rounded to four places. Zero leads give zero.
func ConversionRate(counts map[lead.Status]int) (total int, rate float64) {
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0, 0
	}
	converted := counts[lead.StatusBooked] + counts[lead.StatusCompleted]
	return total, math.Round(float64(converted)/float64(total)*10000) / 10000
}

// RevenueWindows sums settled bookings over calendar periods in UTC.
type RevenueWindows struct {
	Today booking.Revenue `json:"today"`
	Week  booking.Revenue `json:"week"`
	Month booking.Revenue `json:"month"`
	Year  booking.Revenue `json:"year"`
}

// Window names a calendar period and the instant it starts.
type Window struct {
	Name  string
	Since time.Time
}

// Windows returns the start of the current UTC day, ISO week (Monday),
// month and year.
func Windows(now time.Time) []Window {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	return []Window{
		{Name: "today", Since: day},
		{Name: "week", Since: day.AddDate(0, 0, -offset)},
		{Name: "month", Since: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)},
		{Name: "year", Since: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
}

// Set stores r under the window called name.
func (w *RevenueWindows) Set(name string, r booking.Revenue) {
	switch name {
	case "today":
		w.Today = r
	case "week":
		w.Week = r
	case "month":
		w.Month = r
	case "year":
		w.Year = r
	}
}

// Dashboard is the operator overview of the platform.
type Dashboard struct {
	Providers      map[provider.Status]int `json:"providers"`
	Leads          map[lead.Status]int     `json:"leads"`
	Bookings       map[booking.Status]int  `json:"bookings"`
	Revenue        RevenueWindows          `json:"revenue"`
	PendingReviews int                     `json:"pending_reviews"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

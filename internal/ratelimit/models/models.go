package models

import (
	"fmt"
	"time"
)

// Window is one fixed counting window.
type Window struct {
	Name   string
	Limit  int
	Length time.Duration
}

// Key is the counter key for client in the window that contains now. Keys
// roll over at window boundaries, so stale counters simply expire.
func (w Window) Key(client string, now time.Time) string {
	bucket := now.Unix() / int64(w.Length/time.Second)
	return fmt.Sprintf("octopus:ratelimit:%s:%s:%d", w.Name, client, bucket)
}

// RateLimitResult is the outcome of a check against the tightest window.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Window     string    `json:"window"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the body of a 429.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

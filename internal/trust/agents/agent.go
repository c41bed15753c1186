// Package agents implements the five verification signals that feed a trust
// evaluation. Every agent is a read-only, idempotent function of its Subject:
// it calls an external port and turns the answer into a bounded score.
package agents

import (
	"context"
	"errors"
	"fmt"
	"math"

	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
)

// Agent is one verification signal.
type Agent interface {
	Kind() models.AgentKind
	Evaluate(ctx context.Context, subject Subject) (*Result, error)
}

// Subject is the provider snapshot agents evaluate.
type Subject struct {
	ProviderID   id.ProviderID
	BusinessName string
	Website      string
	Email        string
	Phone        string
	Services     []string
	Cities       []string
}

// Result is a successful signal.
type Result struct {
	Kind       models.AgentKind
	Score      int
	Factors    map[string]any
	Confidence float64
}

// Validate enforces the result contract: score in [0,100], confidence in
// [0,1] and a kind matching the agent that produced it.
func (r *Result) Validate(kind models.AgentKind) error {
	if r == nil {
		return NewAgentError(kind, CategoryBadData, "nil result", nil)
	}
	if r.Kind != kind {
		return NewAgentError(kind, CategoryBadData, fmt.Sprintf("result kind %q from %q agent", r.Kind, kind), nil)
	}
	if r.Score < 0 || r.Score > 100 {
		return NewAgentError(kind, CategoryBadData, fmt.Sprintf("score %d outside [0,100]", r.Score), nil)
	}
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return NewAgentError(kind, CategoryBadData, fmt.Sprintf("confidence %.2f outside [0,1]", r.Confidence), nil)
	}
	return nil
}

// Category is the normalised failure taxonomy for agents.
type Category string

const (
	CategoryTimeout        Category = "timeout"
	CategoryBadData        Category = "bad_data"
	CategoryProviderOutage Category = "provider_outage"
	CategoryRateLimited    Category = "rate_limited"
	CategoryCircuitOpen    Category = "circuit_open"
	CategoryNotConfigured  Category = "not_configured"
	CategoryInternal       Category = "internal"
)

// AgentError is a categorised agent failure.
type AgentError struct {
	Agent      models.AgentKind
	Category   Category
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AgentError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("agent %s [%s]: %s: %v", e.Agent, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("agent %s [%s]: %s", e.Agent, e.Category, e.Message)
}

func (e *AgentError) Unwrap() error {
	return e.Underlying
}

// NewAgentError derives Retryable from the category.
func NewAgentError(kind models.AgentKind, category Category, message string, underlying error) *AgentError {
	return &AgentError{
		Agent:      kind,
		Category:   category,
		Message:    message,
		Underlying: underlying,
		Retryable: category == CategoryTimeout ||
			category == CategoryProviderOutage ||
			category == CategoryRateLimited,
	}
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// CategoryOf extracts the failure category, mapping context errors to
// timeouts and anything uncategorised to internal.
func CategoryOf(err error) Category {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Category
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTimeout
	}
	return CategoryInternal
}

// Classify normalises a port error into an AgentError. Errors that already
// carry a category keep it.
func Classify(kind models.AgentKind, err error) *AgentError {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae
	}
	var pe *PortError
	if errors.As(err, &pe) {
		return NewAgentError(kind, pe.category(), "port call failed", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewAgentError(kind, CategoryTimeout, "deadline exceeded", err)
	}
	return NewAgentError(kind, CategoryProviderOutage, "port call failed", err)
}

// PortError is returned by outbound clients with the HTTP status they saw.
type PortError struct {
	Port       string
	StatusCode int
	Err        error
}

func (e *PortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: status %d: %v", e.Port, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Port, e.StatusCode)
}

func (e *PortError) Unwrap() error { return e.Err }

func (e *PortError) category() Category {
	switch {
	case e.StatusCode == 429:
		return CategoryRateLimited
	case e.StatusCode == 408 || e.StatusCode == 504:
		return CategoryTimeout
	case e.StatusCode >= 500 || e.StatusCode == 0:
		return CategoryProviderOutage
	default:
		return CategoryBadData
	}
}

// clamp bounds a computed score to [0,100].
func clamp(score float64) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return int(score + 0.5)
	}
}

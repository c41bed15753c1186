// Package events carries domain events out of the core. Publishing is
// best-effort: a failed publish is logged and counted, never surfaced to the
// business operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"octopus/pkg/requestcontext"
)

type Type string

const (
	ProviderClaimed  Type = "provider.claimed"
	ProviderStatus   Type = "provider.status_changed"
	ProviderUpdated  Type = "provider.updated"
	TrustEvaluated   Type = "trust.evaluated"
	TrustReviewed    Type = "trust.reviewed"
	TrustContributed Type = "trust.contribution_recorded"
	LeadCaptured     Type = "lead.captured"
	LeadStatus       Type = "lead.status_changed"
	BookingRequested Type = "booking.requested"
	BookingConfirmed Type = "booking.confirmed"
	BookingStarted   Type = "booking.started"
	BookingSettled   Type = "booking.settled"
	BookingCancelled Type = "booking.cancelled"
	BookingDisputed  Type = "booking.disputed"
	BookingResolved  Type = "booking.resolved"
)

// Event is transport-agnostic; sinks choose their own encoding.
type Event struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	EntityID   string          `json:"entity_id"`
	ActorID    string          `json:"actor_id,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// New builds an event stamped from the request context. Payloads that fail to
// marshal are dropped rather than failing the caller.
func New(ctx context.Context, typ Type, entityID string, payload any) Event {
	e := Event{
		ID:         uuid.NewString(),
		Type:       typ,
		EntityID:   entityID,
		ActorID:    requestcontext.ActorID(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: requestcontext.Now(ctx).UTC(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			e.Payload = raw
		}
	}
	return e
}

var ErrPublisherClosed = errors.New("publisher closed")

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes and swallows the error after logging it.
func Emit(ctx context.Context, pub Publisher, logger *slog.Logger, event Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "event publish failed",
			"event_type", event.Type,
			"entity_id", event.EntityID,
			"error", err,
		)
	}
}

package events

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "domain event",
		"event_id", event.ID,
		"event_type", event.Type,
		"entity_id", event.EntityID,
		"actor_id", event.ActorID,
		"request_id", event.RequestID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

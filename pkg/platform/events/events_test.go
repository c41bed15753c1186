package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"octopus/pkg/requestcontext"
)

func TestNew_StampsRequestContext(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithActorID(ctx, "admin")

	e := New(ctx, LeadCaptured, "lead-1", map[string]string{"source": "web"})

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, LeadCaptured, e.Type)
	assert.Equal(t, "lead-1", e.EntityID)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "admin", e.ActorID)
	assert.Equal(t, now, e.OccurredAt)
	assert.JSONEq(t, `{"source":"web"}`, string(e.Payload))
}

func TestEmit_SwallowsPublishErrors(t *testing.T) {
	pub := NewMemoryPublisher()
	pub.FailWith(errors.New("broker down"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.NotPanics(t, func() {
		Emit(context.Background(), pub, logger, New(context.Background(), BookingSettled, "b-1", nil))
	})
	assert.Empty(t, pub.Events())

	Emit(context.Background(), nil, logger, Event{})
}

type blockingPublisher struct {
	mu      sync.Mutex
	got     []Event
	release chan struct{}
	closes  int
}

func (p *blockingPublisher) Publish(_ context.Context, e Event) error {
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, e)
	return nil
}

func (p *blockingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func TestAsyncPublisher_DrainsOnClose(t *testing.T) {
	sink := &blockingPublisher{release: make(chan struct{})}
	close(sink.release)
	pub := NewAsyncPublisher(sink, 16)

	for range 10 {
		require.NoError(t, pub.Publish(context.Background(), Event{Type: LeadStatus}))
	}
	require.NoError(t, pub.Close())

	assert.Len(t, sink.got, 10)
	assert.ErrorIs(t, pub.Publish(context.Background(), Event{}), ErrPublisherClosed)
}

func TestAsyncPublisher_DropsWhenFull(t *testing.T) {
	sink := &blockingPublisher{release: make(chan struct{})}
	pub := NewAsyncPublisher(sink, 1)

	// One event may be held by the worker and one by the queue; the rest drop.
	for range 5 {
		require.NoError(t, pub.Publish(context.Background(), Event{Type: LeadStatus}))
	}
	assert.GreaterOrEqual(t, pub.Dropped(), int64(3))

	close(sink.release)
	require.NoError(t, pub.Close())
}

func TestAsyncPublisher_ClosesSinkOnce(t *testing.T) {
	sink := &blockingPublisher{release: make(chan struct{})}
	close(sink.release)
	pub := NewAsyncPublisher(sink, 4)

	require.NoError(t, pub.Publish(context.Background(), Event{Type: LeadStatus}))
	require.NoError(t, pub.Close())
	require.NoError(t, pub.Close())

	assert.Equal(t, 1, sink.closes)
	assert.Len(t, sink.got, 1)
}

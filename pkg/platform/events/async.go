package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultAsyncBuffer = 1024

// AsyncPublisher decouples callers from a slow sink. Events are queued on a
// bounded channel and delivered by one background goroutine; when the queue
// is full the event is dropped and counted. Close drains the queue.
type AsyncPublisher struct {
	next    Publisher
	logger  *slog.Logger
	timeout time.Duration
	queue   chan Event

	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.Mutex
	closed  bool
	dropped int64
	err     error
}

type AsyncOption func(*AsyncPublisher)

func WithAsyncLogger(logger *slog.Logger) AsyncOption {
	return func(p *AsyncPublisher) { p.logger = logger }
}

// WithPublishTimeout bounds each delivery to the wrapped publisher.
func WithPublishTimeout(d time.Duration) AsyncOption {
	return func(p *AsyncPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewAsyncPublisher(next Publisher, buffer int, opts ...AsyncOption) *AsyncPublisher {
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}
	p := &AsyncPublisher{
		next:    next,
		logger:  slog.New(slog.DiscardHandler),
		timeout: 5 * time.Second,
		queue:   make(chan Event, buffer),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()
	for event := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.Publish(ctx, event); err != nil {
			p.logger.Warn("async event delivery failed",
				"event_type", event.Type,
				"entity_id", event.EntityID,
				"error", err,
			)
		}
		cancel()
	}
}

// Publish never blocks on the sink.
func (p *AsyncPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.queue <- event:
	default:
		p.dropped++
	}
	return nil
}

// Dropped reports how many events were discarded because the queue was full.
func (p *AsyncPublisher) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Close drains the queue and closes the wrapped publisher exactly once.
func (p *AsyncPublisher) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
		p.err = p.next.Close()
	})
	return p.err
}

package events

import (
	"context"
	"sync"
)

// MemoryPublisher records events in memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// FailWith makes subsequent Publish calls return err.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *MemoryPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// OfType filters recorded events.
func (p *MemoryPublisher) OfType(typ Type) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (p *MemoryPublisher) Close() error { return nil }

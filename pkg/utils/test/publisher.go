package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/promptsmith/pkg/eventstream"
)

// MockPublisher records published turn events.
type MockPublisher struct {
	mu     sync.Mutex
	Events []*eventstream.TurnCompletedEvent
	Err    error
	closed bool
}

// NewMockPublisher creates an empty MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, event)
	return nil
}

// Published returns a copy of the events seen so far.
func (p *MockPublisher) Published() []*eventstream.TurnCompletedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*eventstream.TurnCompletedEvent, len(p.Events))
	copy(out, p.Events)
	return out
}

func (p *MockPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

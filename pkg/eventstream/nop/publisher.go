// Package nop is the eventstream publisher used when no backend is configured.
package nop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/logger"
)

// Publisher discards turn events. It logs each dropped turn at debug level
// and keeps a count so the proxy can report it.
type Publisher struct {
	logger  *slog.Logger
	dropped atomic.Int64
}

// NewPublisher returns a discarding publisher. A nil logger is silent.
func NewPublisher(log *slog.Logger) *Publisher {
	return &Publisher{logger: logger.OrNop(log)}
}

func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.dropped.Add(1)
	p.logger.Debug("event stream disabled, dropping turn",
		"conversation_id", event.Conversation.ID,
		"event_id", event.EventID,
	)
	return nil
}

// Dropped returns how many turns have been discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) Close() error {
	return nil
}

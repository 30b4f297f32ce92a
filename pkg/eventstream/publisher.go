package eventstream

import (
	"context"
	"errors"
)

var (
	// ErrNilTurnEvent is returned when PublishTurn receives no event.
	ErrNilTurnEvent = errors.New("nil turn event")

	// ErrUnknownProvider is returned for an event stream provider name that
	// has no publisher.
	ErrUnknownProvider = errors.New("unknown event stream provider")
)

// Publisher ships completed turns to an event stream backend. Kafka is the
// only real backend; nop stands in when none is configured.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnCompletedEvent) error
	Close() error
}

// Package eventstream publishes completed conversation turns to an event
// stream backend.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after a streamed turn reaches a
	// terminal state and its conversation has been persisted.
	EventTypeTurnCompleted = "promptsmith.turn.completed"
)

// TurnCompletedEvent is a transport-neutral event payload for a finished turn.
type TurnCompletedEvent struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	EventID       string              `json:"event_id"`
	EmittedAt     time.Time           `json:"emitted_at"`
	Source        EventSource         `json:"source"`
	Turn          TurnMeta            `json:"turn"`
	Conversation  conversation.Record `json:"conversation"`
}

// EventSource identifies where the turn originated.
type EventSource struct {
	// Service is "proxy" or "cli".
	Service string `json:"service"`
	Path    string `json:"path,omitempty"`
	Model   string `json:"model,omitempty"`
}

// TurnMeta describes how the stream for the turn ended.
type TurnMeta struct {
	State            string `json:"state"`
	Deltas           int    `json:"deltas"`
	DroppedFragments int    `json:"dropped_fragments,omitempty"`
	DurationMs       int64  `json:"duration_ms"`
	Error            string `json:"error,omitempty"`
}

// NewTurnCompletedEvent stamps a new event with a fresh id and the current time.
func NewTurnCompletedEvent(source EventSource, turn TurnMeta, rec conversation.Record) *TurnCompletedEvent {
	return &TurnCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeTurnCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Turn:          turn,
		Conversation:  rec,
	}
}

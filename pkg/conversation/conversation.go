// Package conversation holds the ordered, append-only message sequence of a
// chat, along with the observers that render it.
package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/promptsmith/pkg/llm"
)

// ErrInvalidRole is returned when appending a message whose role is neither
// user nor assistant.
var ErrInvalidRole = errors.New("conversation: role must be user or assistant")

// ChangeKind identifies the mutation an observer is told about.
type ChangeKind int

const (
	// ChangeAppend is a new message at Index.
	ChangeAppend ChangeKind = iota

	// ChangeDelta is text appended to the message at Index.
	ChangeDelta

	// ChangeSeal marks the assistant message at Index as final.
	ChangeSeal
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAppend:
		return "append"
	case ChangeDelta:
		return "delta"
	case ChangeSeal:
		return "seal"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes one mutation. Message is a copy taken after the
// mutation; Delta is the appended text for ChangeDelta.
type Change struct {
	Kind    ChangeKind
	Index   int
	Message llm.Message
	Delta   string
}

// Observer is called after every mutation, outside the state's lock.
type Observer func(Change)

// State is a conversation. It is safe for one writer and any number of
// concurrent readers.
type State struct {
	mu        sync.RWMutex
	id        string
	title     string
	model     string
	createdAt time.Time
	updatedAt time.Time
	messages  []llm.Message

	// open is the index of the assistant message still receiving deltas,
	// or -1.
	open int

	observers []Observer
}

// New returns an empty conversation with a fresh id.
func New() *State {
	now := time.Now().UTC()
	return &State{
		id:        uuid.NewString(),
		createdAt: now,
		updatedAt: now,
		open:      -1,
	}
}

// ID returns the conversation id.
func (s *State) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Title returns the conversation title, derived from the first user message
// unless set explicitly.
func (s *State) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

// SetTitle overrides the derived title.
func (s *State) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// Model returns the model that produced the latest assistant reply.
func (s *State) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// SetModel records the model used for the conversation.
func (s *State) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = model
}

// Observe registers fn for every subsequent mutation.
func (s *State) Observe(fn Observer) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Append adds msg to the end of the conversation. A message appended after
// an assistant reply closes that reply to further deltas.
func (s *State) Append(msg llm.Message) (int, error) {
	if msg.Role != llm.RoleUser && msg.Role != llm.RoleAssistant {
		return -1, fmt.Errorf("%w: %q", ErrInvalidRole, msg.Role)
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg.Clone())
	idx := len(s.messages) - 1
	s.open = -1
	if s.title == "" && msg.Role == llm.RoleUser {
		s.title = deriveTitle(msg.GetText())
	}
	s.updatedAt = time.Now().UTC()
	change := Change{Kind: ChangeAppend, Index: idx, Message: s.messages[idx].Clone()}
	observers := s.observers
	s.mu.Unlock()

	notify(observers, change)
	return idx, nil
}

// AppendDelta concatenates delta onto the open assistant message, starting a
// new assistant message when the last message is not one. It returns the
// index of the message that received the delta.
func (s *State) AppendDelta(delta string) int {
	s.mu.Lock()
	kind := ChangeDelta
	last := len(s.messages) - 1
	if s.open < 0 || s.open != last {
		s.messages = append(s.messages, llm.NewTextMessage(llm.RoleAssistant, delta))
		last = len(s.messages) - 1
		s.open = last
		kind = ChangeAppend
	} else {
		s.messages[last].AppendText(delta)
	}
	s.updatedAt = time.Now().UTC()
	change := Change{Kind: kind, Index: last, Message: s.messages[last].Clone(), Delta: delta}
	observers := s.observers
	s.mu.Unlock()

	notify(observers, change)
	return last
}

// Seal closes the open assistant message. It reports whether there was one.
func (s *State) Seal() bool {
	s.mu.Lock()
	if s.open < 0 {
		s.mu.Unlock()
		return false
	}
	idx := s.open
	s.open = -1
	change := Change{Kind: ChangeSeal, Index: idx, Message: s.messages[idx].Clone()}
	observers := s.observers
	s.mu.Unlock()

	notify(observers, change)
	return true
}

// Sealed reports whether the message at i no longer accepts deltas.
func (s *State) Sealed(i int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return i != s.open
}

// Len returns the number of messages.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// At returns a copy of the message at i.
func (s *State) At(i int) (llm.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.messages) {
		return llm.Message{}, false
	}
	return s.messages[i].Clone(), true
}

// Last returns a copy of the final message.
func (s *State) Last() (llm.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return llm.Message{}, false
	}
	return s.messages[len(s.messages)-1].Clone(), true
}

// Messages returns a copy of every message in order.
func (s *State) Messages() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

func notify(observers []Observer, change Change) {
	for _, fn := range observers {
		fn(change)
	}
}

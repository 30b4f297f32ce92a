package conversation

import (
	"time"

	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/utils"
)

const maxTitleRunes = 60

// Record is the persisted form of a conversation.
type Record struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Model     string        `json:"model,omitempty"`
	Messages  []llm.Message `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Snapshot returns the persisted form of s.
func (s *State) Snapshot() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]llm.Message, len(s.messages))
	for i, m := range s.messages {
		messages[i] = m.Clone()
	}
	return Record{
		ID:        s.id,
		Title:     s.title,
		Model:     s.model,
		Messages:  messages,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// Restore rebuilds a conversation from a record. Every restored message is
// sealed.
func Restore(rec Record) *State {
	s := New()
	if rec.ID != "" {
		s.id = rec.ID
	}
	if !rec.CreatedAt.IsZero() {
		s.createdAt = rec.CreatedAt
	}
	if !rec.UpdatedAt.IsZero() {
		s.updatedAt = rec.UpdatedAt
	}
	s.title = rec.Title
	s.model = rec.Model
	s.messages = make([]llm.Message, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		s.messages = append(s.messages, m.Clone())
	}
	if s.title == "" {
		for _, m := range s.messages {
			if m.Role == llm.RoleUser {
				s.title = deriveTitle(m.GetText())
				break
			}
		}
	}
	return s
}

func deriveTitle(text string) string {
	return utils.Truncate(text, maxTitleRunes)
}

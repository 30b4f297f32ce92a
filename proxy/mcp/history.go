package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	listToolName    = "list_conversations"
	listDescription = "List stored prompt generation conversations, most recently updated first."
)

// ListInput is the input of the list_conversations tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of conversations to return (default: 20)"`
}

// Conversation is one entry of the list_conversations output.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListOutput is the output of the list_conversations tool.
type ListOutput struct {
	Conversations []Conversation `json:"conversations"`
	Count         int            `json:"count"`
}

func (s *Server) handleListConversations(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	records, err := s.config.Driver.ListConversations(ctx)
	if err != nil {
		s.logger.Error("MCP list conversations failed", "error", err)
		return toolError("Failed to list conversations: %v", err), ListOutput{}, nil
	}
	if len(records) > limit {
		records = records[:limit]
	}

	out := ListOutput{Conversations: make([]Conversation, 0, len(records))}
	for _, rec := range records {
		out.Conversations = append(out.Conversations, Conversation{
			ID:        rec.ID,
			Title:     rec.Title,
			Model:     rec.Model,
			Messages:  len(rec.Messages),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	out.Count = len(out.Conversations)

	return toolResult(out)
}

package llm

import "encoding/json"

// ChatRequest represents a provider-agnostic chat completion request.
type ChatRequest struct {
	// Model name (e.g., "google/gemini-2.5-flash", "gemma3:latest")
	Model string `json:"model"`

	// Conversation messages, system prompt excluded
	Messages []Message `json:"messages"`

	// Whether to stream the response
	Stream *bool `json:"stream,omitempty"`

	// System prompt, sent upstream as a leading "system" message
	System string `json:"system,omitempty"`

	// Generation parameters
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// ConversationID ties the request to a stored conversation. It is only
	// sent to the promptsmith proxy.
	ConversationID string `json:"conversation_id,omitempty"`

	// RawRequest preserves the original request payload when the request
	// was parsed from the wire.
	RawRequest json.RawMessage `json:"raw_request,omitempty"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Float64 returns a pointer to f.
func Float64(f float64) *float64 { return &f }

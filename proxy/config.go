package proxy

import (
	"context"
	"io"

	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/pkg/stream"
)

// Upstream is the LLM gateway the proxy calls. *gateway.Client implements it.
type Upstream interface {
	Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error)
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Config is the proxy server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	Upstream Upstream

	// Model is sent upstream for prompt generation and is the default for
	// test-prompt.
	Model string

	// Temperature for prompt generation. Defaults to 0.7.
	Temperature float64

	// ForwardConversationID includes the conversation id in upstream requests.
	ForwardConversationID bool

	// Prompts supplies the system prompts.
	Prompts *prompts.Library

	// StreamOptions apply to every streamed turn.
	StreamOptions []stream.Option

	// Publisher receives finished turns. Optional.
	Publisher eventstream.Publisher

	// Workers and QueueSize size the persistence pool. Zero uses the pool
	// defaults.
	Workers   uint
	QueueSize uint
}

const defaultTemperature = 0.7

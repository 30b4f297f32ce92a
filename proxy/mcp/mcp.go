// Package mcp provides the MCP (Model Context Protocol) server of the
// promptsmith service. It exposes prompt generation, prompt testing and the
// conversation history as tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/pkg/utils"
)

// Completer runs a non-streaming completion. *gateway.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

type Config struct {
	Completer Completer

	// Prompts supplies the generation system prompts.
	Prompts *prompts.Library

	// Driver serves the history tools.
	Driver storage.Driver

	// Model is the default model for every tool.
	Model       string
	Temperature float64

	Logger *slog.Logger
}

type Server struct {
	config  Config
	logger  *slog.Logger
	server  *mcp.Server
	handler *mcp.StreamableHTTPHandler
}

// NewServer creates the MCP server and registers its tools.
func NewServer(c Config) (*Server, error) {
	if c.Completer == nil {
		return nil, errors.New("completer is required")
	}
	if c.Prompts == nil {
		return nil, errors.New("prompt library is required")
	}
	if c.Driver == nil {
		return nil, errors.New("storage driver is required")
	}

	s := &Server{
		config: c,
		logger: logger.OrNop(c.Logger),
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "promptsmith",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        generateToolName,
		Description: generateDescription,
	}, s.handleGenerate)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        testToolName,
		Description: testDescription,
	}, s.handleTestPrompt)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        listToolName,
		Description: listDescription,
	}, s.handleListConversations)

	s.server = mcpServer

	// Stateless: every request is served by the same server.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// toolError is a tool result the client sees as a failed call.
func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// toolResult returns out as structured content plus its JSON text, for
// clients that only read text content.
func toolResult[T any](out T) (*mcp.CallToolResult, T, error) {
	data, err := json.Marshal(out)
	if err != nil {
		var zero T
		return toolError("Failed to serialize result: %v", err), zero, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, out, nil
}

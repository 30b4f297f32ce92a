package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/quality"
)

var (
	testToolName    = "test_prompt"
	testDescription = "Run a system prompt against a test input and score the reply. Returns the reply with its latency, estimated token count and a quality score between 0.5 and 1.0."
)

const noResponseOutput = "No response generated"

// TestPromptInput is the input of the test_prompt tool.
type TestPromptInput struct {
	Prompt    string `json:"prompt" jsonschema:"the system prompt to test"`
	TestInput string `json:"test_input" jsonschema:"the user message sent with the prompt"`
	Model     string `json:"model,omitempty" jsonschema:"model to test with (default: the service model)"`
}

// TestPromptOutput is the output of the test_prompt tool.
type TestPromptOutput struct {
	Output  string          `json:"output"`
	Metrics quality.Metrics `json:"metrics"`
}

func (s *Server) handleTestPrompt(ctx context.Context, _ *mcp.CallToolRequest, input TestPromptInput) (*mcp.CallToolResult, TestPromptOutput, error) {
	if strings.TrimSpace(input.Prompt) == "" || strings.TrimSpace(input.TestInput) == "" {
		return toolError("prompt and test_input are required"), TestPromptOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.Model
	}

	start := time.Now()
	resp, err := s.config.Completer.Complete(ctx, &llm.ChatRequest{
		Model:    model,
		System:   input.Prompt,
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, input.TestInput)},
		Stream:   llm.Bool(false),
	})
	latency := time.Since(start)
	if err != nil {
		s.logger.Error("MCP test prompt failed", "model", model, "error", err)
		return toolError("Failed to test prompt: %v", err), TestPromptOutput{}, nil
	}

	output := resp.Message.GetText()
	if output == "" {
		output = noResponseOutput
	}

	return toolResult(TestPromptOutput{
		Output:  output,
		Metrics: quality.Measure(output, input.TestInput, model, latency),
	})
}

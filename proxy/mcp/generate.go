package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/promptsmith/pkg/llm"
)

var (
	generateToolName    = "generate_prompt"
	generateDescription = "Generate a system prompt from a description of the task. Requests for agents or chatbots get an agent-style prompt."
)

// GenerateInput is the input of the generate_prompt tool.
type GenerateInput struct {
	Description   string `json:"description" jsonschema:"what the generated prompt should make the model do"`
	SystemContext string `json:"system_context,omitempty" jsonschema:"optional context about the product or audience"`
	Model         string `json:"model,omitempty" jsonschema:"model to generate with (default: the service model)"`
}

// GenerateOutput is the output of the generate_prompt tool.
type GenerateOutput struct {
	Prompt string `json:"prompt"`
	Agent  bool   `json:"agent"`
	Model  string `json:"model"`
}

func (s *Server) handleGenerate(ctx context.Context, _ *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
	if strings.TrimSpace(input.Description) == "" {
		return toolError("description is required"), GenerateOutput{}, nil
	}

	model := input.Model
	if model == "" {
		model = s.config.Model
	}

	system, agent := s.config.Prompts.EnhancedSystemPrompt(input.Description, input.SystemContext)
	s.logger.Debug("MCP generate request", "model", model, "agent", agent)

	req := &llm.ChatRequest{
		Model:    model,
		System:   system,
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, input.Description)},
		Stream:   llm.Bool(false),
	}
	if s.config.Temperature != 0 {
		req.Temperature = llm.Float64(s.config.Temperature)
	}

	resp, err := s.config.Completer.Complete(ctx, req)
	if err != nil {
		s.logger.Error("MCP generate failed", "model", model, "error", err)
		return toolError("Failed to generate prompt: %v", err), GenerateOutput{}, nil
	}

	return toolResult(GenerateOutput{
		Prompt: resp.Message.GetText(),
		Agent:  agent,
		Model:  model,
	})
}

package proxy

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/quality"
)

const noResponseOutput = "No response generated"

type testPromptRequest struct {
	Prompt    string `json:"prompt" validate:"required"`
	TestInput string `json:"testInput" validate:"required"`
	Model     string `json:"model"`
}

// TestPromptResponse is the body returned by POST /v1/test-prompt.
type TestPromptResponse struct {
	Output  string          `json:"output"`
	Metrics quality.Metrics `json:"metrics"`
}

var (
	errTestInputRequired = llm.ErrorResponse{Error: "Prompt and test input are required"}

	errTestRateLimited = llm.ErrorResponse{
		Error:    "Rate limits exceeded",
		Fallback: "Please try again in a moment",
	}

	errTestFailed = llm.ErrorResponse{
		Error:    "AI gateway error",
		Fallback: "Unable to test prompt. Please try again.",
	}
)

// handleTestPrompt runs the posted prompt as the system prompt against
// testInput and scores the reply.
func (p *Proxy) handleTestPrompt(c *fiber.Ctx) error {
	var req testPromptRequest
	if err := c.BodyParser(&req); err != nil {
		return sendError(c, fiber.StatusBadRequest, errInvalidJSON)
	}
	if err := p.validate.Struct(req); err != nil {
		return sendError(c, fiber.StatusBadRequest, errTestInputRequired)
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	ctx := gateway.ContextWithHeaders(c.UserContext(), p.headerHandler.UpstreamHeaders(c))
	start := time.Now()
	resp, err := p.config.Upstream.Complete(ctx, &llm.ChatRequest{
		Model:    model,
		System:   req.Prompt,
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, req.TestInput)},
		Stream:   llm.Bool(false),
	})
	latency := time.Since(start)

	if err != nil {
		p.logger.Error("test prompt failed", "model", model, "error", err)
		if errors.Is(err, gateway.ErrRateLimited) {
			return sendError(c, fiber.StatusTooManyRequests, errTestRateLimited)
		}
		return sendError(c, fiber.StatusInternalServerError, errTestFailed)
	}

	output := resp.Message.GetText()
	if output == "" {
		output = noResponseOutput
	}

	metrics := quality.Measure(output, req.TestInput, model, latency)
	p.logger.Info("test completed",
		"model", model,
		"latency_ms", metrics.Latency,
		"token_count", metrics.TokenCount,
		"quality_score", metrics.QualityScore,
	)

	return c.JSON(TestPromptResponse{Output: output, Metrics: metrics})
}

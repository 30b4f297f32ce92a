package proxy

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/llm/provider/openai"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/pkg/stream"
	"github.com/papercomputeco/promptsmith/proxy/worker"
)

// serviceName identifies the proxy as the source of turn events.
const serviceName = "promptsmith-proxy"

type generateRequest struct {
	Messages       []generateMessage `json:"messages" validate:"required,min=1,dive"`
	ConversationID string            `json:"conversation_id"`
}

type generateMessage struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content any    `json:"content" validate:"required"`
}

type enhancedRequest struct {
	UserInput     string `json:"userInput" validate:"required"`
	SystemContext string `json:"systemContext"`
}

// handleGeneratePrompt streams a reply to the posted conversation using the
// generate-prompt system prompt.
func (p *Proxy) handleGeneratePrompt(c *fiber.Ctx) error {
	// The request body is only valid for the lifetime of the handler.
	body := append([]byte(nil), c.Body()...)

	var req generateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		p.logger.Debug("invalid generate-prompt body", "error", err)
		return sendError(c, fiber.StatusBadRequest, errInvalidJSON)
	}
	if err := p.validate.Struct(req); err != nil {
		p.logger.Debug("invalid generate-prompt messages", "error", err)
		return sendError(c, fiber.StatusBadRequest, errInvalidMessages)
	}

	parsed, err := openai.ParseRequest(body)
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, errInvalidJSON)
	}

	system, err := p.config.Prompts.Get(prompts.GeneratePrompt)
	if err != nil {
		p.logger.Error("loading system prompt", "name", prompts.GeneratePrompt, "error", err)
		return sendError(c, fiber.StatusInternalServerError, errNetwork)
	}

	conv := conversation.Restore(conversation.Record{
		ID:       req.ConversationID,
		Messages: parsed.Messages,
	})
	return p.streamTurn(c, conv, system)
}

// handleGenerateEnhancedPrompt streams a generated prompt for userInput. The
// system prompt is chosen by the detected intent.
func (p *Proxy) handleGenerateEnhancedPrompt(c *fiber.Ctx) error {
	var req enhancedRequest
	if err := c.BodyParser(&req); err != nil {
		p.logger.Debug("invalid enhanced-prompt body", "error", err)
		return sendError(c, fiber.StatusBadRequest, errInvalidJSON)
	}
	if err := p.validate.Struct(req); err != nil {
		return sendError(c, fiber.StatusBadRequest, llm.ErrorResponse{
			Error:    "User input is required",
			Fallback: "Describe the prompt you want to generate",
		})
	}

	system, agent := p.config.Prompts.EnhancedSystemPrompt(req.UserInput, req.SystemContext)
	p.logger.Debug("enhanced prompt request", "agent", agent, "system_prompt_bytes", len(system))

	conv := conversation.New()
	if _, err := conv.Append(llm.NewTextMessage(llm.RoleUser, req.UserInput)); err != nil {
		return sendError(c, fiber.StatusBadRequest, errInvalidMessages)
	}
	return p.streamTurn(c, conv, system)
}

// streamTurn opens the upstream stream for conv and pipes its raw bytes to
// the client. The same bytes are folded into conv; the finished turn is
// handed to the worker pool.
func (p *Proxy) streamTurn(c *fiber.Ctx, conv *conversation.State, system string) error {
	req := &llm.ChatRequest{
		Model:       p.config.Model,
		System:      system,
		Messages:    conv.Messages(),
		Temperature: llm.Float64(p.config.Temperature),
		Stream:      llm.Bool(true),
	}
	if p.config.ForwardConversationID {
		req.ConversationID = conv.ID()
	}

	// The fiber context is recycled once the handler returns, so neither
	// the upstream call nor anything the goroutine reads may borrow from it.
	ctx := gateway.ContextWithHeaders(context.Background(), p.headerHandler.UpstreamHeaders(c))
	source := eventstream.EventSource{
		Service: serviceName,
		Path:    utils.CopyString(c.Path()),
		Model:   p.config.Model,
	}
	start := time.Now()

	body, err := p.config.Upstream.Stream(ctx, req)
	if err != nil {
		p.logger.Warn("upstream stream failed",
			"path", source.Path,
			"conversation", conv.ID(),
			"error", err,
		)
		return sendUpstreamError(c, err)
	}

	p.headerHandler.SetStreamHeaders(c, conv.ID())

	pr, pw := io.Pipe()
	p.streams.Add(1)
	go func() {
		defer p.streams.Done()
		defer body.Close()

		opts := append([]stream.Option{stream.WithLogger(p.logger), stream.WithTee(pw)}, p.config.StreamOptions...)
		res, runErr := stream.NewSession(conv, opts...).Run(ctx, body)
		if runErr != nil {
			pw.CloseWithError(runErr)
		} else {
			pw.Close()
		}

		if p.config.Model != "" {
			conv.SetModel(p.config.Model)
		}

		p.logger.Debug("turn finished",
			"conversation", conv.ID(),
			"state", res.State.String(),
			"deltas", res.Deltas,
			"dropped_fragments", res.DroppedFragments,
		)

		if res.State != stream.Completed && res.Deltas == 0 {
			return
		}
		p.workerPool.Enqueue(worker.NewJob(source, conv, res, time.Since(start)))
	}()

	c.Context().SetBodyStream(pr, -1)
	return nil
}

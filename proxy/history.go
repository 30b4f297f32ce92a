package proxy

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

// ConversationSummary is one entry of GET /v1/conversations.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model,omitempty"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summarize returns the list entry for rec.
func Summarize(rec conversation.Record) ConversationSummary {
	return ConversationSummary{
		ID:        rec.ID,
		Title:     rec.Title,
		Model:     rec.Model,
		Messages:  len(rec.Messages),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

var errStorage = llm.ErrorResponse{
	Error:    "Unable to read conversation history",
	Fallback: "Please try your request again",
}

func (p *Proxy) handleListConversations(c *fiber.Ctx) error {
	records, err := p.driver.ListConversations(c.UserContext())
	if err != nil {
		p.logger.Error("listing conversations", "error", err)
		return sendError(c, fiber.StatusInternalServerError, errStorage)
	}

	summaries := make([]ConversationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, Summarize(rec))
	}
	return c.JSON(summaries)
}

func (p *Proxy) handleGetConversation(c *fiber.Ctx) error {
	rec, err := p.driver.GetConversation(c.UserContext(), c.Params("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return sendError(c, fiber.StatusNotFound, errNotFound)
		}
		p.logger.Error("reading conversation", "id", c.Params("id"), "error", err)
		return sendError(c, fiber.StatusInternalServerError, errStorage)
	}
	return c.JSON(rec)
}

func (p *Proxy) handleDeleteConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := p.driver.DeleteConversation(c.UserContext(), id); err != nil {
		if storage.IsNotFound(err) {
			return sendError(c, fiber.StatusNotFound, errNotFound)
		}
		p.logger.Error("deleting conversation", "id", id, "error", err)
		return sendError(c, fiber.StatusInternalServerError, errStorage)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

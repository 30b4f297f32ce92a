package proxy

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/sse"
)

var (
	errInvalidJSON = llm.ErrorResponse{
		Error:    "Invalid request format",
		Fallback: "Check your input format and try again",
	}

	errInvalidMessages = llm.ErrorResponse{
		Error: "Invalid messages format. Expected non-empty array.",
	}

	errNoBody = llm.ErrorResponse{
		Error:    "Invalid response from AI service",
		Fallback: "Please try your request again",
	}

	errNetwork = llm.ErrorResponse{
		Error:    "Network connection error",
		Fallback: "Check your connection and retry",
	}

	errNotFound = llm.ErrorResponse{
		Error: "Conversation not found",
	}
)

// sendError writes resp as JSON with status.
func sendError(c *fiber.Ctx, status int, resp llm.ErrorResponse) error {
	return c.Status(status).JSON(resp)
}

// sendUpstreamError maps a failure to open the upstream stream onto the
// client response: gateway status errors keep their status and texts, a
// missing body and transport failures become 500.
func sendUpstreamError(c *fiber.Ctx, err error) error {
	var se *gateway.StatusError
	switch {
	case errors.As(err, &se):
		return sendError(c, se.HTTPStatus(), se.Response())
	case errors.Is(err, sse.ErrNoBody):
		return sendError(c, fiber.StatusInternalServerError, errNoBody)
	default:
		return sendError(c, fiber.StatusInternalServerError, errNetwork)
	}
}

// Package header provides header filtering for the promptsmith proxy.
//
// The proxy sits between a client and the upstream LLM gateway like so:
//
//	Client <--> Proxy <--> Upstream LLM Gateway
//
// The proxy authenticates upstream with its own key and re-encodes every
// request, so only client headers that carry request metadata travel on.
package header

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between proxy connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ConversationIDHeader carries the id of the conversation a streamed
// response belongs to, so clients can send it back on the next turn.
const ConversationIDHeader = "X-Promptsmith-Conversation-Id"

// skipRequest is the set of request headers (client --> proxy --> upstream)
// that are not forwarded to the upstream gateway.
var skipRequest = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Te":                {},

	// Rewritten by Go's http.Transport for the upstream URL.
	"Host": {},

	// Stripped so that Go's http.Transport adds its own "Accept-Encoding: gzip"
	// and transparently decompresses the upstream response.
	"Accept-Encoding": {},

	// The gateway client sets these for the re-encoded body.
	"Content-Type":   {},
	"Content-Length": {},
	"Accept":         {},

	// Client credentials stay at the proxy; upstream uses the proxy's key.
	"Authorization": {},
	"Apikey":        {},
	"Cookie":        {},

	// Browser-only CORS headers.
	"Origin":                         {},
	"Referer":                        {},
	"Access-Control-Request-Method":  {},
	"Access-Control-Request-Headers": {},

	ConversationIDHeader: {},
}

// UpstreamHeaders returns the client request headers that should be forwarded
// to the upstream gateway.
func (h *Handler) UpstreamHeaders(c *fiber.Ctx) http.Header {
	out := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		k := http.CanonicalHeaderKey(string(key))
		if _, skip := skipRequest[k]; !skip {
			out.Add(k, string(value))
		}
	})
	return out
}

// SetStreamHeaders prepares the client response for a server-sent-events
// body belonging to conversationID.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx, conversationID string) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
	if conversationID != "" {
		c.Set(ConversationIDHeader, conversationID)
	}
}

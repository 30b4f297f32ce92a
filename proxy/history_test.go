package proxy

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/storage/inmemory"
)

type requestKey struct{}

// contextDriver records the request id found on each context it is handed.
type contextDriver struct {
	*inmemory.Driver
	seen []any
}

func (d *contextDriver) ListConversations(ctx context.Context) ([]conversation.Record, error) {
	d.seen = append(d.seen, ctx.Value(requestKey{}))
	return d.Driver.ListConversations(ctx)
}

func (d *contextDriver) GetConversation(ctx context.Context, id string) (*conversation.Record, error) {
	d.seen = append(d.seen, ctx.Value(requestKey{}))
	return d.Driver.GetConversation(ctx, id)
}

func (d *contextDriver) DeleteConversation(ctx context.Context, id string) error {
	d.seen = append(d.seen, ctx.Value(requestKey{}))
	return d.Driver.DeleteConversation(ctx, id)
}

var _ = Describe("history handlers", func() {
	It("hand the request context to the storage driver", func() {
		driver := &contextDriver{Driver: inmemory.NewDriver()}
		Expect(driver.SaveConversation(context.Background(), conversation.Record{ID: "conv-1"})).To(Succeed())
		p := &Proxy{driver: driver, logger: logger.Nop()}

		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			c.SetUserContext(context.WithValue(context.Background(), requestKey{}, "req-1"))
			return c.Next()
		})
		app.Get("/conversations", p.handleListConversations)
		app.Get("/conversations/:id", p.handleGetConversation)
		app.Delete("/conversations/:id", p.handleDeleteConversation)

		for _, req := range []*http.Request{
			httptest.NewRequest(http.MethodGet, "/conversations", nil),
			httptest.NewRequest(http.MethodGet, "/conversations/conv-1", nil),
			httptest.NewRequest(http.MethodDelete, "/conversations/conv-1", nil),
		} {
			resp, err := app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(BeNumerically("<", 300))
		}

		Expect(driver.seen).To(Equal([]any{"req-1", "req-1", "req-1"}))
	})
})

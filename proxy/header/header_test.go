package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("UpstreamHeaders", func() {
	var (
		app *fiber.App
		hh  *Handler
		got http.Header
	)

	BeforeEach(func() {
		app = fiber.New()
		hh = NewHandler()
		got = nil

		app.Post("/test", func(c *fiber.Ctx) error {
			got = hh.UpstreamHeaders(c)
			return c.SendStatus(fiber.StatusOK)
		})
	})

	AfterEach(func() {
		app.Shutdown()
	})

	send := func(headers map[string]string) {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
	}

	It("forwards request metadata headers", func() {
		send(map[string]string{
			"X-Request-Id": "req-123",
			"User-Agent":   "promptsmith-test",
			"Traceparent":  "00-abc-def-01",
		})

		Expect(got.Get("X-Request-Id")).To(Equal("req-123"))
		Expect(got.Get("User-Agent")).To(Equal("promptsmith-test"))
		Expect(got.Get("Traceparent")).To(Equal("00-abc-def-01"))
	})

	It("keeps client credentials at the proxy", func() {
		send(map[string]string{
			"Authorization": "Bearer client-token",
			"Apikey":        "anon-key",
			"Cookie":        "session=1",
		})

		Expect(got.Get("Authorization")).To(BeEmpty())
		Expect(got.Get("Apikey")).To(BeEmpty())
		Expect(got.Get("Cookie")).To(BeEmpty())
	})

	DescribeTable("strips headers the proxy owns",
		func(name, value string) {
			send(map[string]string{name: value})
			Expect(got.Get(name)).To(BeEmpty())
		},
		Entry("Connection", "Connection", "keep-alive"),
		Entry("Accept-Encoding", "Accept-Encoding", "gzip, br"),
		Entry("Content-Type", "Content-Type", "application/json"),
		Entry("Accept", "Accept", "text/event-stream"),
		Entry("Origin", "Origin", "https://app.example.com"),
		Entry("conversation id", ConversationIDHeader, "conv-1"),
	)

	It("never forwards Host", func() {
		send(nil)
		Expect(got.Get("Host")).To(BeEmpty())
	})
})

var _ = Describe("SetStreamHeaders", func() {
	It("sets event-stream headers and the conversation id", func() {
		app := fiber.New()
		defer app.Shutdown()

		hh := NewHandler()
		app.Get("/stream", func(c *fiber.Ctx) error {
			hh.SetStreamHeaders(c, "conv-42")
			return c.SendString("data: [DONE]\n\n")
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
		Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
		Expect(resp.Header.Get(ConversationIDHeader)).To(Equal("conv-42"))
	})

	It("omits the conversation id when empty", func() {
		app := fiber.New()
		defer app.Shutdown()

		hh := NewHandler()
		app.Get("/stream", func(c *fiber.Ctx) error {
			hh.SetStreamHeaders(c, "")
			return c.SendStatus(fiber.StatusOK)
		})

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/stream", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.Header.Get(ConversationIDHeader)).To(BeEmpty())
	})
})

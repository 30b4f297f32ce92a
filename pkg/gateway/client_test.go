package gateway_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/sse"
)

var _ = Describe("Client", func() {
	var (
		upstream *httptest.Server
		handler  http.HandlerFunc
		lastReq  *http.Request
		lastBody []byte
		client   *gateway.Client
	)

	BeforeEach(func() {
		handler = nil
		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastReq = r
			lastBody, _ = io.ReadAll(r.Body)
			handler(w, r)
		}))

		var err error
		client, err = gateway.New(gateway.Config{BaseURL: upstream.URL + "/v1", APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		upstream.Close()
	})

	request := func() *llm.ChatRequest {
		return &llm.ChatRequest{
			Model:    "gemma3:latest",
			System:   "system prompt",
			Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, "Hello")},
		}
	}

	It("requires a base url", func() {
		_, err := gateway.New(gateway.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("joins the base url and path", func() {
		c, err := gateway.New(gateway.Config{BaseURL: "http://proxy:8080/", Path: gateway.GeneratePromptPath})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Endpoint()).To(Equal("http://proxy:8080/v1/generate-prompt"))
	})

	Describe("Stream", func() {
		It("posts a streaming request and returns the raw body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				w.WriteHeader(http.StatusOK)
				flusher := w.(http.Flusher)
				_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
				flusher.Flush()
				_, _ = io.WriteString(w, "data: [DONE]\n\n")
				flusher.Flush()
			}

			body, err := client.Stream(context.Background(), request())
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			raw, err := io.ReadAll(body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(ContainSubstring("data: [DONE]"))

			Expect(lastReq.URL.Path).To(Equal("/v1/chat/completions"))
			Expect(lastReq.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(lastReq.Header.Get("Accept")).To(Equal("text/event-stream"))
			Expect(gjson.GetBytes(lastBody, "stream").Bool()).To(BeTrue())
			Expect(gjson.GetBytes(lastBody, "messages.0.role").String()).To(Equal("system"))
			Expect(gjson.GetBytes(lastBody, "messages.1.content").String()).To(Equal("Hello"))
		})

		It("does not mutate the caller's request", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "data: [DONE]\n")
			}
			req := request()
			body, err := client.Stream(context.Background(), req)
			Expect(err).NotTo(HaveOccurred())
			body.Close()
			Expect(req.Stream).To(BeNil())
		})

		It("reports a missing body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}
			_, err := client.Stream(context.Background(), request())
			Expect(err).To(MatchError(sse.ErrNoBody))
		})

		It("forwards headers attached to the context", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "data: [DONE]\n")
			}
			ctx := gateway.ContextWithHeaders(context.Background(), http.Header{"X-Request-Id": {"abc"}})
			body, err := client.Stream(ctx, request())
			Expect(err).NotTo(HaveOccurred())
			body.Close()
			Expect(lastReq.Header.Get("X-Request-Id")).To(Equal("abc"))
		})

		It("aborts the body read when the context is cancelled", func() {
			release := make(chan struct{})
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, "data: {}\n\n")
				w.(http.Flusher).Flush()
				<-release
			}
			defer close(release)

			ctx, cancel := context.WithCancel(context.Background())
			body, err := client.Stream(ctx, request())
			Expect(err).NotTo(HaveOccurred())
			defer body.Close()

			cancel()
			done := make(chan error, 1)
			go func() {
				_, err := io.ReadAll(body)
				done <- err
			}()
			Eventually(done, 2*time.Second).Should(Receive(HaveOccurred()))
		})
	})

	DescribeTable("status errors",
		func(status int, sentinel error, passthrough int, message string) {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = io.WriteString(w, `{"error":{"message":"upstream says no"}}`)
			}

			_, err := client.Stream(context.Background(), request())
			Expect(err).To(MatchError(sentinel))

			var statusErr *gateway.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode).To(Equal(status))
			Expect(statusErr.HTTPStatus()).To(Equal(passthrough))
			Expect(statusErr.Message).To(Equal(message))
			Expect(statusErr.Fallback).NotTo(BeEmpty())
			Expect(statusErr.Body).To(ContainSubstring("upstream says no"))
		},
		Entry("rate limited", http.StatusTooManyRequests, gateway.ErrRateLimited, 429,
			"Rate limits exceeded. Please try again in a few moments."),
		Entry("payment required", http.StatusPaymentRequired, gateway.ErrPaymentRequired, 402,
			"Payment required. Please add credits to your AI gateway workspace."),
		Entry("bad request", http.StatusBadRequest, gateway.ErrInvalidRequest, 400,
			"Invalid request format. Please check your input and try again."),
		Entry("server error", http.StatusServiceUnavailable, gateway.ErrUpstream, 500,
			"AI service temporarily unavailable. Please try again."),
		Entry("other client error", http.StatusForbidden, gateway.ErrUpstream, 500,
			"AI service temporarily unavailable. Please try again."),
	)

	Describe("Complete", func() {
		It("parses a non-streaming reply", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, `{"model":"gemma3:latest","choices":[{"message":{"role":"assistant","content":"Result"},"finish_reason":"stop"}]}`)
			}

			resp, err := client.Complete(context.Background(), request())
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Message.GetText()).To(Equal("Result"))
			Expect(gjson.GetBytes(lastBody, "stream").Bool()).To(BeFalse())
		})

		It("fails on an unparseable reply", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `not json`)
			}
			_, err := client.Complete(context.Background(), request())
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("StatusError", func() {
	It("keeps the texts of a proxy error document", func() {
		err := gateway.NewStatusError(429, []byte(`{"error":"Rate limits exceeded","fallback":"Please try again in a moment"}`))
		Expect(err.Message).To(Equal("Rate limits exceeded"))
		Expect(err.Fallback).To(Equal("Please try again in a moment"))
	})

	It("adds details for generic failures", func() {
		Expect(gateway.NewStatusError(502, nil).Response().Details).To(Equal("Server error"))
		Expect(gateway.NewStatusError(404, nil).Response().Details).To(Equal("Request error"))
		Expect(gateway.NewStatusError(429, nil).Response().Details).To(BeEmpty())
	})
})

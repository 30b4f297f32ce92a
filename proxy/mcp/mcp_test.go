package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/pkg/storage/inmemory"
)

type fakeCompleter struct {
	reply    string
	err      error
	requests []*llm.ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Message: llm.NewTextMessage(llm.RoleAssistant, f.reply)}, nil
}

func resultText(res *mcp.CallToolResult) string {
	Expect(res.Content).NotTo(BeEmpty())
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		ctx       context.Context
		server    *Server
		completer *fakeCompleter
		driver    *inmemory.Driver
		library   *prompts.Library
	)

	BeforeEach(func() {
		ctx = context.Background()
		completer = &fakeCompleter{reply: "You are a meticulous code reviewer."}
		driver = inmemory.NewDriver()

		var err error
		library, err = prompts.New("", logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		server, err = NewServer(Config{
			Completer:   completer,
			Prompts:     library,
			Driver:      driver,
			Model:       "gemma3:latest",
			Temperature: 0.7,
			Logger:      logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("requires a completer", func() {
			_, err := NewServer(Config{Prompts: library, Driver: driver})
			Expect(err).To(MatchError(ContainSubstring("completer is required")))
		})

		It("requires a prompt library", func() {
			_, err := NewServer(Config{Completer: completer, Driver: driver})
			Expect(err).To(MatchError(ContainSubstring("prompt library is required")))
		})

		It("requires a storage driver", func() {
			_, err := NewServer(Config{Completer: completer, Prompts: library})
			Expect(err).To(MatchError(ContainSubstring("storage driver is required")))
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("lists its tools to a connected client", func() {
			clientTransport, serverTransport := mcp.NewInMemoryTransports()
			_, err := server.MCPServer().Connect(ctx, serverTransport, nil)
			Expect(err).NotTo(HaveOccurred())

			client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
			session, err := client.Connect(ctx, clientTransport, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(session.Close)

			res, err := session.ListTools(ctx, &mcp.ListToolsParams{})
			Expect(err).NotTo(HaveOccurred())

			names := []string{}
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}
			Expect(names).To(ConsistOf("generate_prompt", "test_prompt", "list_conversations"))
		})
	})

	Describe("generate_prompt", func() {
		It("generates with the enhanced system prompt", func() {
			res, out, err := server.handleGenerate(ctx, nil, GenerateInput{
				Description:   "A support chatbot for a bike shop",
				SystemContext: "Customers are mostly commuters",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			Expect(out.Prompt).To(Equal("You are a meticulous code reviewer."))
			Expect(out.Agent).To(BeTrue())
			Expect(out.Model).To(Equal("gemma3:latest"))
			Expect(resultText(res)).To(ContainSubstring(`"agent":true`))

			req := completer.requests[0]
			Expect(req.System).To(ContainSubstring("Customers are mostly commuters"))
			Expect(*req.Temperature).To(Equal(0.7))
			Expect(*req.Stream).To(BeFalse())
		})

		It("rejects an empty description", func() {
			res, _, err := server.handleGenerate(ctx, nil, GenerateInput{Description: "  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(completer.requests).To(BeEmpty())
		})

		It("reports upstream failures as tool errors", func() {
			completer.err = errors.New("connection refused")
			res, _, err := server.handleGenerate(ctx, nil, GenerateInput{Description: "a haiku writer"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("connection refused"))
		})
	})

	Describe("test_prompt", func() {
		It("scores the reply", func() {
			completer.reply = "A thorough review of the login handler covering error paths and tests."
			res, out, err := server.handleTestPrompt(ctx, nil, TestPromptInput{
				Prompt:    "You review code.",
				TestInput: "Review the login handler",
				Model:     "gpt-4o-mini",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			Expect(completer.requests[0].Model).To(Equal("gpt-4o-mini"))
			Expect(completer.requests[0].System).To(Equal("You review code."))
			Expect(out.Metrics.Model).To(Equal("gpt-4o-mini"))
			Expect(out.Metrics.QualityScore).To(BeNumerically(">", 0.7))
		})

		It("reports an empty reply", func() {
			completer.reply = ""
			_, out, err := server.handleTestPrompt(ctx, nil, TestPromptInput{Prompt: "p", TestInput: "i"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Output).To(Equal("No response generated"))
		})

		It("requires both fields", func() {
			res, _, err := server.handleTestPrompt(ctx, nil, TestPromptInput{Prompt: "p"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("list_conversations", func() {
		BeforeEach(func() {
			now := time.Now()
			for i, title := range []string{"oldest", "middle", "newest"} {
				Expect(driver.SaveConversation(ctx, conversation.Record{
					ID:        title,
					Title:     title,
					Messages:  []llm.Message{llm.NewTextMessage(llm.RoleUser, title)},
					UpdatedAt: now.Add(time.Duration(i) * time.Minute),
				})).To(Succeed())
			}
		})

		It("lists the newest first", func() {
			_, out, err := server.handleListConversations(ctx, nil, ListInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(3))
			Expect(out.Conversations[0].Title).To(Equal("newest"))
			Expect(out.Conversations[0].Messages).To(Equal(1))
		})

		It("honors the limit", func() {
			_, out, err := server.handleListConversations(ctx, nil, ListInput{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Conversations).To(HaveLen(2))
			Expect(out.Conversations[1].Title).To(Equal("middle"))
		})
	})
})

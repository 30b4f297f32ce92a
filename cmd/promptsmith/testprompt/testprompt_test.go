package testpromptcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
)

type fakeCompleter struct {
	reply string
	err   error
	last  *llm.ChatRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Message: llm.NewTextMessage(llm.RoleAssistant, f.reply)}, nil
}

var _ = Describe("Run", func() {
	It("sends the prompt as the system message and scores the reply", func() {
		fc := &fakeCompleter{reply: "Bonjour! The weather this morning is lovely and sunny outside."}

		res, err := Run(context.Background(), fc, "Translate to French.", "Good morning weather", "gpt-4o-mini")
		Expect(err).NotTo(HaveOccurred())

		Expect(fc.last.System).To(Equal("Translate to French."))
		Expect(fc.last.Model).To(Equal("gpt-4o-mini"))
		Expect(fc.last.Messages).To(HaveLen(1))
		Expect(fc.last.Messages[0].GetText()).To(Equal("Good morning weather"))

		Expect(res.Output).To(HavePrefix("Bonjour!"))
		Expect(res.Metrics.Model).To(Equal("gpt-4o-mini"))
		Expect(res.Metrics.QualityScore).To(BeNumerically(">", 0.5))
	})

	It("reports an empty reply", func() {
		res, err := Run(context.Background(), &fakeCompleter{}, "p", "i", "m")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Output).To(Equal("No response generated"))
	})
})

var _ = Describe("test-prompt command", func() {
	var (
		out    *bytes.Buffer
		cmder  *testPromptCommander
		client *fakeCompleter
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		client = &fakeCompleter{reply: "A concise reply."}
		cfg := config.NewDefaultConfig()
		cfg.Client.Render = false
		cmder = &testPromptCommander{cfg: cfg}
	})

	It("requires both the prompt and the input", func() {
		cmder.prompt = "p"
		Expect(cmder.run(context.Background(), client, out)).To(MatchError(ContainSubstring("required")))
		Expect(client.last).To(BeNil())
	})

	It("shows progress on the status writer only", func() {
		status := &bytes.Buffer{}
		cmder.status = status
		cmder.prompt = "Be brief."
		cmder.input = "Hello"

		Expect(cmder.run(context.Background(), client, out)).To(Succeed())
		Expect(status.String()).To(ContainSubstring("Testing prompt"))
		Expect(out.String()).NotTo(ContainSubstring("Testing prompt"))
		Expect(out.String()).To(ContainSubstring("A concise reply."))
	})

	It("reads the prompt from a file", func() {
		file := filepath.Join(GinkgoT().TempDir(), "tutor.md")
		Expect(os.WriteFile(file, []byte("You are a patient tutor."), 0o600)).To(Succeed())
		cmder.promptFile = file
		cmder.input = "What is a derivative?"

		Expect(cmder.run(context.Background(), client, out)).To(Succeed())
		Expect(client.last.System).To(Equal("You are a patient tutor."))
		Expect(out.String()).To(ContainSubstring("A concise reply."))
	})

	It("prints JSON when asked", func() {
		cmder.prompt, cmder.input, cmder.jsonOut = "p", "i", true

		Expect(cmder.run(context.Background(), client, out)).To(Succeed())

		var res Result
		Expect(json.Unmarshal(out.Bytes(), &res)).To(Succeed())
		Expect(res.Output).To(Equal("A concise reply."))
		Expect(res.Metrics.Model).To(Equal("gemma3:latest"))
	})

	It("surfaces the gateway's user facing message", func() {
		client.err = gateway.NewStatusError(http.StatusPaymentRequired, nil)
		cmder.prompt, cmder.input = "p", "i"

		err := cmder.run(context.Background(), client, out)
		Expect(err).To(MatchError(ContainSubstring("Payment required")))
	})

	It("rejects --prompt together with --prompt-file", func() {
		cmd := NewTestPromptCmd()
		cmd.SetArgs([]string{"--prompt", "p", "--prompt-file", "f", "--input", "i"})
		cmd.SetOut(out)
		cmd.SetErr(out)
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})

package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/workflow"
)

type fakeCompleter struct {
	prompts []string
	failOn  int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.failOn > 0 && len(f.prompts) == f.failOn {
		return "", errors.New("gateway returned 500")
	}
	return "out" + string(rune('0'+len(f.prompts))), nil
}

const blogWorkflow = `
name = "Blog"

[[steps]]
id = "draft"
name = "Generate Draft"
prompt = "Write about {{topic}} for {{audience}}"
output_variable = "draft"

[[steps]]
id = "refine"
type = "transform"
name = "Refine"
prompt = "Improve {{draft}} for {{audience}} keeping {{unknown_ref}}"
output_variable = "refined"
`

var _ = Describe("Workflow", func() {
	Describe("Parse", func() {
		It("decodes steps in order and fills defaults", func() {
			wf, err := workflow.Parse([]byte(blogWorkflow))
			Expect(err).NotTo(HaveOccurred())
			Expect(wf.Name).To(Equal("Blog"))
			Expect(wf.Steps).To(HaveLen(2))
			Expect(wf.Steps[0].Type).To(Equal(workflow.StepPrompt))
			Expect(wf.Steps[1].OutputVariable).To(Equal("refined"))
		})

		DescribeTable("rejects invalid documents",
			func(doc string) {
				_, err := workflow.Parse([]byte(doc))
				Expect(err).To(HaveOccurred())
			},
			Entry("no steps", `name = "x"`),
			Entry("bad toml", `[[steps`),
			Entry("unknown key", "[[steps]]\nprompt = \"p\"\noutput_variable = \"a\"\ncolour = \"red\""),
			Entry("missing prompt", "[[steps]]\noutput_variable = \"a\""),
			Entry("bad output variable", "[[steps]]\nprompt = \"p\"\noutput_variable = \"a b\""),
			Entry("unknown type", "[[steps]]\ntype = \"loop\"\nprompt = \"p\"\noutput_variable = \"a\""),
			Entry("duplicate output", "[[steps]]\nprompt = \"p\"\noutput_variable = \"a\"\n[[steps]]\nprompt = \"q\"\noutput_variable = \"a\""),
		)

		It("loads a file", func() {
			file := filepath.Join(GinkgoT().TempDir(), "blog.toml")
			Expect(os.WriteFile(file, []byte(blogWorkflow), 0o600)).To(Succeed())
			wf, err := workflow.Load(file)
			Expect(err).NotTo(HaveOccurred())
			Expect(wf.Steps[0].ID).To(Equal("draft"))
		})
	})

	Describe("RequiredInputs", func() {
		It("lists referenced variables no step produces", func() {
			wf, _ := workflow.Parse([]byte(blogWorkflow))
			Expect(wf.RequiredInputs()).To(Equal([]string{"topic", "audience", "unknown_ref"}))
		})
	})

	Describe("Substitute", func() {
		It("replaces known variables and keeps the rest", func() {
			out := workflow.Substitute("{{a}} and {{b}} and {{ c }} and {{empty}}", map[string]string{"a": "x", "empty": ""})
			Expect(out).To(Equal("x and {{b}} and {{ c }} and {{empty}}"))
		})
	})

	Describe("Templates", func() {
		It("parses the built-in workflows", func() {
			tpls, err := workflow.Templates()
			Expect(err).NotTo(HaveOccurred())
			Expect(tpls).To(HaveKey("agent-builder"))
			Expect(tpls["agent-builder"].RequiredInputs()).To(Equal([]string{"agentType"}))
			Expect(tpls["content-pipeline"].Steps[1].Prompt).To(HavePrefix("Improve this content"))
			Expect(tpls["research-summarize"].RequiredInputs()).To(Equal([]string{"topic"}))
		})
	})
})

var _ = Describe("Runner", func() {
	var (
		wf        *workflow.Workflow
		completer *fakeCompleter
		seen      []workflow.StepResult
		runner    *workflow.Runner
	)

	BeforeEach(func() {
		var err error
		wf, err = workflow.Parse([]byte(blogWorkflow))
		Expect(err).NotTo(HaveOccurred())
		completer = &fakeCompleter{}
		seen = nil
		runner = workflow.NewRunner(completer, func(r workflow.StepResult) { seen = append(seen, r) }, nil)
	})

	inputs := map[string]string{"topic": "Go", "audience": "devs", "unknown_ref": "tone"}

	It("fails on blank inputs without running anything", func() {
		_, _, err := runner.Run(context.Background(), wf, map[string]string{"topic": " "})

		var missing *workflow.MissingInputsError
		Expect(errors.As(err, &missing)).To(BeTrue())
		Expect(missing.Names).To(Equal([]string{"topic", "audience", "unknown_ref"}))
		Expect(completer.prompts).To(BeEmpty())
	})

	It("runs steps in order and threads outputs through", func() {
		results, vars, err := runner.Run(context.Background(), wf, inputs)
		Expect(err).NotTo(HaveOccurred())

		Expect(completer.prompts).To(Equal([]string{
			"Write about Go for devs",
			"Improve out1 for devs keeping tone",
		}))
		Expect(results).To(HaveLen(2))
		Expect(results[0].Status).To(Equal(workflow.StatusSuccess))
		Expect(results[1].Output).To(Equal("out2"))
		Expect(vars).To(HaveKeyWithValue("refined", "out2"))
		Expect(seen).To(HaveLen(2))
	})

	It("stops at the first failing step", func() {
		completer.failOn = 1
		results, _, err := runner.Run(context.Background(), wf, inputs)
		Expect(err).To(MatchError(ContainSubstring("Generate Draft")))

		Expect(results[0].Status).To(Equal(workflow.StatusError))
		Expect(results[0].Error).To(ContainSubstring("500"))
		Expect(results[1].Status).To(Equal(workflow.StatusPending))
		Expect(completer.prompts).To(HaveLen(1))
		Expect(strings.Join(completer.prompts, "")).NotTo(ContainSubstring("{{topic}}"))
	})
})

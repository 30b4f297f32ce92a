// Package testpromptcmder provides the test-prompt command, which runs a
// system prompt against a test input and scores the reply.
package testpromptcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/cmd/promptsmith/wiring"
	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/quality"
)

const noResponseOutput = "No response generated"

// Completer runs a non-streaming completion. *gateway.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)
}

// Result is the JSON output of the command.
type Result struct {
	Output  string          `json:"output"`
	Metrics quality.Metrics `json:"metrics"`
}

type testPromptCommander struct {
	prompt     string
	promptFile string
	input      string
	jsonOut    bool

	baseURL, apiKey, model, timeout string
	render                          bool

	// status receives the progress spinner. Nil disables it.
	status io.Writer

	cfg *config.Config
}

var testPromptFlagKeys = []string{
	config.FlagBaseURL,
	config.FlagAPIKey,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagRender,
}

const testPromptLongDesc string = `Run a system prompt against a test input and score the reply.

The prompt is sent as the system message and the input as the user message
in a single non-streaming request. The reply is printed with its latency, an
estimated token count and a quality score between 0.5 and 1.0.

Examples:
  promptsmith test-prompt --prompt "Translate to French." --input "Good morning"
  promptsmith test-prompt --prompt-file prompts/tutor.md --input "What is a derivative?" --json`

const testPromptShortDesc string = "Test a prompt against an input"

func NewTestPromptCmd() *cobra.Command {
	cmder := &testPromptCommander{}

	cmd := &cobra.Command{
		Use:   "test-prompt",
		Short: testPromptShortDesc,
		Long:  testPromptLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wiring.LoadConfig(cmd, testPromptFlagKeys...)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := wiring.NewCLILogger(cmd)
			client, err := wiring.NewGatewayClient(cmder.cfg, false, log)
			if err != nil {
				return err
			}
			if !cmder.jsonOut {
				cmder.status = cmd.ErrOrStderr()
			}
			return cmder.run(cmd.Context(), client, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.prompt, "prompt", "", "System prompt to test")
	cmd.Flags().StringVar(&cmder.promptFile, "prompt-file", "", "Read the system prompt from a file")
	cmd.Flags().StringVarP(&cmder.input, "input", "i", "", "Test input sent as the user message")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the result as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagRender, &cmder.render)
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")

	return cmd
}

func (c *testPromptCommander) run(ctx context.Context, client Completer, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	prompt := c.prompt
	if c.promptFile != "" {
		data, err := os.ReadFile(c.promptFile)
		if err != nil {
			return fmt.Errorf("reading prompt file: %w", err)
		}
		prompt = string(data)
	}
	if prompt == "" || c.input == "" {
		return errors.New("prompt and test input are required")
	}

	var res *Result
	call := func() error {
		var err error
		res, err = Run(ctx, client, prompt, c.input, c.cfg.Gateway.Model)
		return err
	}
	var err error
	if c.status != nil {
		err = cliui.Step(c.status, "Testing prompt", call)
	} else {
		err = call()
	}
	if err != nil {
		var se *gateway.StatusError
		if errors.As(err, &se) {
			return fmt.Errorf("%s %s", se.Message, se.Fallback)
		}
		return fmt.Errorf("testing prompt: %w", err)
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	output := res.Output
	if c.cfg.Client.Render {
		if rendered, err := cliui.RenderMarkdown(output); err == nil {
			output = rendered
		}
	}
	fmt.Fprintf(out, "\n%s\n\n", output)
	printMetrics(out, res.Metrics)
	return nil
}

// Run sends prompt as the system message and input as the user message,
// then scores the reply.
func Run(ctx context.Context, client Completer, prompt, input, model string) (*Result, error) {
	start := time.Now()
	resp, err := client.Complete(ctx, &llm.ChatRequest{
		Model:    model,
		System:   prompt,
		Messages: []llm.Message{llm.NewTextMessage(llm.RoleUser, input)},
	})
	if err != nil {
		return nil, err
	}
	latency := time.Since(start)

	output := resp.Message.GetText()
	if output == "" {
		output = noResponseOutput
	}
	return &Result{Output: output, Metrics: quality.Measure(output, input, model, latency)}, nil
}

func printMetrics(out io.Writer, m quality.Metrics) {
	rows := [][2]string{
		{"Model", m.Model},
		{"Latency", cliui.FormatDuration(time.Duration(m.Latency) * time.Millisecond)},
		{"Tokens", fmt.Sprintf("~%d", m.TokenCount)},
		{"Quality", fmt.Sprintf("%.0f%%", m.QualityScore*100)},
	}
	cliui.KeyValues(out, rows)
	fmt.Fprintln(out)
}

package workflowcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/cmd/promptsmith/wiring"
	"github.com/papercomputeco/promptsmith/pkg/chat"
	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/workflow"
)

type runCommander struct {
	inputs  []string
	jsonOut bool

	baseURL, apiKey, model, timeout  string
	maxPendingBytes, maxPendingLines uint

	cfg    *config.Config
	logger *slog.Logger
}

var runFlagKeys = []string{
	config.FlagBaseURL,
	config.FlagAPIKey,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagMaxPendingBytes,
	config.FlagMaxPendingLines,
}

// runOutput is the JSON output of a run.
type runOutput struct {
	Workflow string                `json:"workflow"`
	Steps    []workflow.StepResult `json:"steps"`
	Output   string                `json:"output,omitempty"`
	Error    string                `json:"error,omitempty"`
}

func newRunCmd() *cobra.Command {
	cmder := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run <template|file>",
		Short: "Run a workflow template or file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wiring.LoadConfig(cmd, runFlagKeys...)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = wiring.NewCLILogger(cmd)
			client, err := wiring.NewGatewayClient(cmder.cfg, false, cmder.logger)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), client, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringArrayVarP(&cmder.inputs, "input", "i", nil, "Workflow input as key=value (repeatable)")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the step results as JSON")
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &cmder.apiKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxPendingBytes, &cmder.maxPendingBytes)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxPendingLines, &cmder.maxPendingLines)

	return cmd
}

func (c *runCommander) run(ctx context.Context, opener chat.Opener, ref string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	wf, err := resolve(ref)
	if err != nil {
		return err
	}
	inputs, err := parseInputs(c.inputs)
	if err != nil {
		return err
	}

	svc, err := chat.New(chat.Config{
		Opener:        opener,
		Model:         c.cfg.Gateway.Model,
		Temperature:   llm.Float64(c.cfg.Gateway.Temperature),
		StreamOptions: wiring.StreamOptions(c.cfg),
		Logger:        c.logger,
	})
	if err != nil {
		return err
	}

	var onStep workflow.StepFunc
	if !c.jsonOut {
		fmt.Fprintf(out, "  %s %s\n\n", cliui.KeyStyle.Render("Workflow:"), cliui.NameStyle.Render(wf.Name))
		onStep = func(res workflow.StepResult) {
			printStep(out, res)
		}
	}

	results, vars, runErr := workflow.NewRunner(svc, onStep, c.logger).Run(ctx, wf, inputs)

	var missing *workflow.MissingInputsError
	if errors.As(runErr, &missing) {
		return runErr
	}

	final := ""
	if runErr == nil {
		final = vars[wf.Steps[len(wf.Steps)-1].OutputVariable]
	}

	if c.jsonOut {
		doc := runOutput{Workflow: wf.Name, Steps: results, Output: final}
		if runErr != nil {
			doc.Error = userMessage(runErr)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return runErr
	}

	if runErr != nil {
		return errors.New(userMessage(runErr))
	}
	fmt.Fprintf(out, "\n%s\n", final)
	return nil
}

func printStep(out io.Writer, res workflow.StepResult) {
	var err error
	if res.Status == workflow.StatusError {
		err = errors.New(res.Error)
	}
	fmt.Fprintf(out, "  %s %s %s\n",
		cliui.Mark(err),
		res.Name,
		cliui.StepStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(res.Duration))),
	)
}

func userMessage(err error) string {
	var se *gateway.StatusError
	if errors.As(err, &se) {
		return strings.TrimSpace(se.Message + " " + se.Fallback)
	}
	return err.Error()
}

// Package workflowcmder provides the workflow command, which runs multi-step
// prompt pipelines against the gateway.
package workflowcmder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/workflow"
)

const workflowLongDesc string = `Run multi-step prompt workflows.

A workflow is a TOML file of ordered steps. Each step prompt may reference
{{name}} variables: workflow inputs given with --input, or the output
variable of an earlier step. Steps run one after another; the first failing
step stops the run.

Built-in templates can be run by name. Use "promptsmith workflow list" to see
them and the inputs they need.

Examples:
  promptsmith workflow list
  promptsmith workflow run research-summarize --input topic="solid state batteries"
  promptsmith workflow run ./pipelines/release-notes.toml -i changes="$(git log --oneline -20)"`

const workflowShortDesc string = "Run multi-step prompt workflows"

func NewWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: workflowShortDesc,
		Long:  workflowLongDesc,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// resolve loads ref as a built-in template name, or as a workflow file.
func resolve(ref string) (*workflow.Workflow, error) {
	templates, err := workflow.Templates()
	if err != nil {
		return nil, err
	}
	if wf, ok := templates[ref]; ok {
		return wf, nil
	}
	if !strings.ContainsAny(ref, `/\.`) {
		names := make([]string, 0, len(templates))
		for name := range templates {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("unknown workflow template %q (available: %s)", ref, strings.Join(names, ", "))
	}
	return workflow.Load(ref)
}

// parseInputs turns key=value pairs into a map. Later pairs win.
func parseInputs(pairs []string) (map[string]string, error) {
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		inputs[key] = value
	}
	return inputs, nil
}

package workflowcmder

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/workflow"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in workflow templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd.OutOrStdout())
		},
	}
}

func runList(out io.Writer) error {
	templates, err := workflow.Templates()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		wf := templates[name]
		fmt.Fprintf(out, "  %s  %s\n", cliui.NameStyle.Render(name), wf.Description)
		fmt.Fprintf(out, "    %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d steps, inputs:", len(wf.Steps))),
			strings.Join(wf.RequiredInputs(), ", "),
		)
	}
	return nil
}

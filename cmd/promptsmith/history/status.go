package historycmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/dotdir"
	"github.com/papercomputeco/promptsmith/pkg/utils"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the checked out conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(dotdir.NewManager(), configDir, cmd.OutOrStdout())
		},
	}
}

func runStatus(m *dotdir.Manager, configDir string, out io.Writer) error {
	state, err := m.LoadCheckoutState(configDir)
	if err != nil {
		return fmt.Errorf("loading checkout state: %w", err)
	}

	if state == nil {
		fmt.Fprintf(out, "  %s No checkout state. Next chat will start a new conversation.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	rec := state.Conversation
	fmt.Fprintln(out)
	cliui.KeyValues(out, [][2]string{
		{"Checked out", rec.ID},
		{"Messages", strconv.Itoa(len(rec.Messages))},
	})
	fmt.Fprintln(out)

	for i, msg := range rec.Messages {
		fmt.Fprintf(out, "  %s %s %s\n",
			cliui.DimStyle.Render(fmt.Sprintf("%d.", i+1)),
			cliui.NameStyle.Render("["+msg.Role+"]"),
			cliui.ValueStyle.Render(utils.Truncate(msg.GetText(), 72)),
		)
	}

	fmt.Fprintln(out)
	return nil
}

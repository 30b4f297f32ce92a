package historycmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

func newShowCmd() *cobra.Command {
	var (
		store  storeFlags
		render bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, d storage.Driver) error {
				return runShow(ctx, d, args[0], render, cmd.OutOrStdout())
			})
		},
	}

	store.register(cmd)
	cmd.Flags().BoolVar(&render, "render", false, "Render assistant messages as markdown")

	return cmd
}

func runShow(ctx context.Context, d storage.Driver, ref string, render bool, out io.Writer) error {
	rec, err := findConversation(ctx, d, ref)
	if err != nil {
		return err
	}

	printHeader(out, rec)
	for _, msg := range rec.Messages {
		text := msg.GetText()
		if render && msg.Role == llm.RoleAssistant {
			if rendered, err := cliui.RenderMarkdown(text); err == nil {
				text = rendered
			}
		}
		fmt.Fprintf(out, "%s\n%s\n\n", cliui.NameStyle.Render("["+msg.Role+"]"), text)
	}
	return nil
}

func printHeader(out io.Writer, rec *conversation.Record) {
	fmt.Fprintln(out)
	cliui.KeyValues(out, [][2]string{
		{"Conversation", rec.ID},
		{"Title", rec.Title},
		{"Model", rec.Model},
		{"Updated", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
	})
	fmt.Fprintln(out)
}

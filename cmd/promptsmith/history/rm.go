package historycmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

func newRmCmd() *cobra.Command {
	var store storeFlags

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a stored conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, d storage.Driver) error {
				return runRm(ctx, d, args[0], cmd.OutOrStdout())
			})
		},
	}

	store.register(cmd)

	return cmd
}

// runRm deletes the conversation. A checkout of it is left in place; it
// still holds the full conversation.
func runRm(ctx context.Context, d storage.Driver, ref string, out io.Writer) error {
	rec, err := findConversation(ctx, d, ref)
	if err != nil {
		return err
	}
	if err := d.DeleteConversation(ctx, rec.ID); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	fmt.Fprintf(out, "  %s Deleted %s\n", cliui.SuccessMark, cliui.IDStyle.Render(shortID(rec.ID)))
	return nil
}

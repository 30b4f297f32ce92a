package historycmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/dotdir"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/pkg/utils"
)

const checkoutLongDesc string = `Choose the conversation the next "promptsmith chat" session resumes.

The conversation is copied into the checkout state of the .promptsmith/
directory, so the chat session can resume it without the history store.

If no id is provided, clears the checkout state so the next chat session
starts a new conversation.

Examples:
  promptsmith history checkout 3f2a9c   Resume a conversation
  promptsmith history checkout          Clear checkout state, start fresh`

func newCheckoutCmd() *cobra.Command {
	var store storeFlags

	cmd := &cobra.Command{
		Use:   "checkout [id]",
		Short: "Resume a conversation in the next chat session",
		Long:  checkoutLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				return runClearCheckout(dotdir.NewManager(), configDir, out)
			}
			return withStore(cmd, func(ctx context.Context, d storage.Driver) error {
				return runCheckout(ctx, d, dotdir.NewManager(), configDir, args[0], out)
			})
		},
	}

	store.register(cmd)

	return cmd
}

func runCheckout(ctx context.Context, d storage.Driver, m *dotdir.Manager, configDir, ref string, out io.Writer) error {
	rec, err := findConversation(ctx, d, ref)
	if err != nil {
		return err
	}

	if err := m.SaveCheckout(&dotdir.CheckoutState{Conversation: *rec}, configDir); err != nil {
		return fmt.Errorf("saving checkout: %w", err)
	}

	fmt.Fprintf(out, "Checked out %s (%d messages)\n", shortID(rec.ID), len(rec.Messages))
	for _, msg := range rec.Messages {
		fmt.Fprintf(out, "  [%s] %s\n", msg.Role, utils.Truncate(msg.GetText(), 60))
	}
	return nil
}

func runClearCheckout(m *dotdir.Manager, configDir string, out io.Writer) error {
	if err := m.ClearCheckout(configDir); err != nil {
		return fmt.Errorf("clearing checkout: %w", err)
	}
	fmt.Fprintln(out, "Checkout cleared. Next chat will start a new conversation.")
	return nil
}

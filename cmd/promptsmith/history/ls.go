package historycmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/pkg/utils"
	"github.com/papercomputeco/promptsmith/proxy"
)

type lsOptions struct {
	limit   int
	jsonOut bool
}

func newLsCmd() *cobra.Command {
	var (
		store storeFlags
		opts  lsOptions
	)

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, d storage.Driver) error {
				return runLs(ctx, d, opts, cmd.OutOrStdout())
			})
		},
	}

	store.register(cmd)
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Show at most this many conversations (0 for all)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the list as JSON")

	return cmd
}

func runLs(ctx context.Context, d storage.Driver, opts lsOptions, out io.Writer) error {
	records, err := d.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if opts.limit > 0 && len(records) > opts.limit {
		records = records[:opts.limit]
	}

	summaries := make([]proxy.ConversationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, proxy.Summarize(rec))
	}

	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("No conversations yet."))
		return nil
	}

	for _, s := range summaries {
		fmt.Fprintf(out, "  %s  %s  %s  %s\n",
			cliui.IDStyle.Render(shortID(s.ID)),
			cliui.DimStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")),
			cliui.DimStyle.Render(fmt.Sprintf("%3d msgs", s.Messages)),
			utils.Truncate(s.Title, 60),
		)
	}
	return nil
}

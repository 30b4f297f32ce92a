// Package historycmder provides the history command for browsing stored
// conversations and choosing the one the next chat session resumes.
package historycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/cmd/promptsmith/sqlitepath"
	"github.com/papercomputeco/promptsmith/cmd/promptsmith/wiring"
	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/storage"
)

const historyLongDesc string = `Browse stored conversations.

Conversations are read from the configured history store: PostgreSQL when
--postgres is set, otherwise SQLite. Without either, the first existing
database among ./promptsmith.db, ./.promptsmith/history.db and
~/.promptsmith/history.db is used.

Conversation ids may be shortened to any unique prefix.

Examples:
  promptsmith history ls
  promptsmith history show 3f2a9c
  promptsmith history checkout 3f2a9c   Resume this conversation in the next chat
  promptsmith history checkout          Clear the checkout, start fresh
  promptsmith history status
  promptsmith history rm 3f2a9c`

const historyShortDesc string = "Browse stored conversations"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newCheckoutCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// storeFlags are the history store flags shared by the subcommands.
type storeFlags struct {
	sqlitePath, postgresDSN string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgresDSN)
}

// openStore opens the history store for cmd. An unset SQLite path is
// resolved from the well-known locations.
func openStore(cmd *cobra.Command) (storage.Driver, error) {
	cfg, err := wiring.LoadConfig(cmd, config.FlagSQLite, config.FlagPostgres)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.PostgresDSN == "" {
		path, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		cfg.Storage.SQLitePath = path
	}

	return wiring.NewStorageDriver(cmd.Context(), cfg, wiring.NewCLILogger(cmd))
}

// withStore opens the store, runs fn and closes the store.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, d storage.Driver) error) error {
	d, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, d)
}

// findConversation returns the record whose id is ref, or the only record
// whose id starts with ref.
func findConversation(ctx context.Context, d storage.Driver, ref string) (*conversation.Record, error) {
	rec, err := d.GetConversation(ctx, ref)
	if err == nil {
		return rec, nil
	}
	if !storage.IsNotFound(err) {
		return nil, err
	}

	records, err := d.ListConversations(ctx)
	if err != nil {
		return nil, err
	}

	var matches []conversation.Record
	for _, r := range records {
		if strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r)
		}
	}

	switch len(matches) {
	case 0:
		return nil, storage.NotFoundError{ID: ref}
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("conversation id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// shortID is the id prefix shown in listings.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// Package configcmder provides the config command for managing persistent
// promptsmith configuration stored in the .promptsmith/ directory.
package configcmder

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/config"
)

const configLongDesc string = `Manage persistent promptsmith configuration.

Configuration is stored as config.toml in the .promptsmith/ directory and
provides default values for command flags. CLI flags and PROMPTSMITH_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  gateway.base_url, gateway.api_key, gateway.model, gateway.temperature,
  proxy.listen, proxy.prompts_dir, client.proxy_target,
  storage.sqlite_path, storage.postgres_dsn, eventstream.provider, ...

Use subcommands to get, set, or list configuration values:
  promptsmith config set <key> <value>    Set a configuration value
  promptsmith config get <key>            Get a configuration value
  promptsmith config list                 List all configuration values

Examples:
  promptsmith config set gateway.model gpt-4o-mini
  promptsmith config set storage.sqlite_path ~/.promptsmith/history.db
  promptsmith config get gateway.base_url
  promptsmith config list`

const configShortDesc string = "Manage persistent promptsmith configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// displayValue masks secrets so they never reach the terminal in full.
func displayValue(key, value string) string {
	if value == "" || !config.IsSecretConfigKey(key) {
		return value
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

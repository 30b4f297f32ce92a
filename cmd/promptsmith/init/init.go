// Package initcmder provides the init command for initializing a local
// .promptsmith directory in the current working directory.
package initcmder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/cliui"
	"github.com/papercomputeco/promptsmith/pkg/config"
)

const (
	dirName = ".promptsmith"
)

const initLongDesc string = `Initialize a new .promptsmith/ directory in the current working directory.

Creates a local .promptsmith/ directory that takes precedence over the
default ~/.promptsmith/ directory for configuration and chat checkout state.

Use --preset to write a config.toml pointing at a known gateway:
  ollama    http://localhost:11434/v1 with gemma3:latest
  openai    https://api.openai.com/v1 with gpt-4o-mini
  lovable   https://ai.gateway.lovable.dev/v1 with google/gemini-2.5-flash

Examples:
  promptsmith init
  promptsmith init --preset openai`

const initShortDesc string = "Initialize a local .promptsmith/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Gateway preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")

	return cmd
}

func runInit(cmd *cobra.Command, preset string) error {
	var cfg *config.Config
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	out := cmd.OutOrStdout()

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(out, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .promptsmith directory: %w", err)
		}
		fmt.Fprintf(out, "Initialized .promptsmith directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(out, "  %s Wrote %s preset: %s %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(preset),
		cliui.ValueStyle.Render(cfg.Gateway.BaseURL),
		cliui.DimStyle.Render("("+cfg.Gateway.Model+")"),
	)
	return nil
}

// Package promptsmithcmder
package promptsmithcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/chat"
	configcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/config"
	historycmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/history"
	initcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/init"
	servecmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/serve"
	testpromptcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/testprompt"
	workflowcmder "github.com/papercomputeco/promptsmith/cmd/promptsmith/workflow"
	versioncmder "github.com/papercomputeco/promptsmith/cmd/version"
)

const promptsmithLongDesc string = `Promptsmith generates and tests system prompts with an LLM.

Replies stream from an OpenAI-compatible gateway and are folded into a
conversation as they arrive, even when the gateway splits a frame across
network reads.

Common commands:
  promptsmith chat           Chat with the prompt generator
  promptsmith serve          Run the prompt generation HTTP service
  promptsmith test-prompt    Run a prompt against a test input and score it
  promptsmith workflow run   Run a multi-step prompt workflow`

const promptsmithShortDesc string = "Promptsmith - streaming prompt generation"

func NewPromptsmithCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "promptsmith",
		Short:        promptsmithShortDesc,
		Long:         promptsmithLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .promptsmith/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(testpromptcmder.NewTestPromptCmd())
	cmd.AddCommand(workflowcmder.NewWorkflowCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

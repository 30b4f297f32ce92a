package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --model
// on "promptsmith chat", "promptsmith test-prompt" and "promptsmith workflow run").
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "gateway.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBaseURL          = "base-url"
	FlagAPIKey           = "api-key"
	FlagModel            = "model"
	FlagTimeout          = "timeout"
	FlagListen           = "listen"
	FlagPromptsDir       = "prompts-dir"
	FlagWorkers          = "workers"
	FlagForwardConvID    = "forward-conversation-id"
	FlagProxyTarget      = "proxy-target"
	FlagRender           = "render"
	FlagMaxPendingBytes  = "max-pending-bytes"
	FlagMaxPendingLines  = "max-pending-lines"
	FlagSQLite           = "sqlite"
	FlagPostgres         = "postgres"
	FlagEventStreamProv  = "eventstream-provider"
	FlagEventStreamBroks = "eventstream-brokers"
	FlagEventStreamTopic = "eventstream-topic"
)

// Flags is the registry shared by every promptsmith command.
var Flags = FlagSet{
	FlagBaseURL:          {Name: "base-url", ViperKey: "gateway.base_url", Description: "Base URL of the OpenAI-compatible LLM gateway"},
	FlagAPIKey:           {Name: "api-key", ViperKey: "gateway.api_key", Description: "API key sent to the LLM gateway"},
	FlagModel:            {Name: "model", Shorthand: "m", ViperKey: "gateway.model", Description: "Model name (e.g., gemma3:latest, gpt-4o-mini)"},
	FlagTimeout:          {Name: "timeout", ViperKey: "gateway.timeout", Description: "Gateway request timeout (e.g. 5m)"},
	FlagListen:           {Name: "listen", Shorthand: "l", ViperKey: "proxy.listen", Description: "Address for the proxy to listen on"},
	FlagPromptsDir:       {Name: "prompts-dir", ViperKey: "proxy.prompts_dir", Description: "Directory of system prompt overrides (<name>.md)"},
	FlagWorkers:          {Name: "workers", ViperKey: "proxy.workers", Description: "Number of history persistence workers"},
	FlagForwardConvID:    {Name: "forward-conversation-id", ViperKey: "proxy.forward_conversation_id", Description: "Forward conversation ids to the gateway"},
	FlagProxyTarget:      {Name: "proxy-target", Shorthand: "p", ViperKey: "client.proxy_target", Description: "Promptsmith proxy URL; empty calls the gateway directly"},
	FlagRender:           {Name: "render", ViperKey: "client.render", Description: "Render the final assistant message as markdown"},
	FlagMaxPendingBytes:  {Name: "max-pending-bytes", ViperKey: "stream.max_pending_bytes", Description: "Largest partial frame held while waiting for its remainder"},
	FlagMaxPendingLines:  {Name: "max-pending-lines", ViperKey: "stream.max_pending_lines", Description: "Most lines a partial frame may span"},
	FlagSQLite:           {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite conversation history database"},
	FlagPostgres:         {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for conversation history"},
	FlagEventStreamProv:  {Name: "eventstream-provider", ViperKey: "eventstream.provider", Description: "Turn event publisher (kafka, or empty to disable)"},
	FlagEventStreamBroks: {Name: "eventstream-brokers", ViperKey: "eventstream.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventStreamTopic: {Name: "eventstream-topic", ViperKey: "eventstream.topic", Description: "Kafka topic for turn events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultViper().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	return defaultViper().GetString(viperKey)
}

func defaultViper() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

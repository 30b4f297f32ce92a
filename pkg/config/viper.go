package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/promptsmith/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PROMPTSMITH_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PROMPTSMITH_GATEWAY_API_KEY, PROMPTSMITH_PROXY_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("PROMPTSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper builds a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Gateway: GatewayConfig{
			BaseURL:     v.GetString("gateway.base_url"),
			APIKey:      v.GetString("gateway.api_key"),
			Model:       v.GetString("gateway.model"),
			Temperature: v.GetFloat64("gateway.temperature"),
			Timeout:     v.GetString("gateway.timeout"),
		},
		Proxy: ProxyConfig{
			Listen:                v.GetString("proxy.listen"),
			PromptsDir:            v.GetString("proxy.prompts_dir"),
			Workers:               v.GetUint("proxy.workers"),
			QueueSize:             v.GetUint("proxy.queue_size"),
			ForwardConversationID: v.GetBool("proxy.forward_conversation_id"),
		},
		Client: ClientConfig{
			ProxyTarget: v.GetString("client.proxy_target"),
			Render:      v.GetBool("client.render"),
		},
		Stream: StreamConfig{
			MaxBufferBytes:  v.GetUint("stream.max_buffer_bytes"),
			MaxPendingBytes: v.GetUint("stream.max_pending_bytes"),
			MaxPendingLines: v.GetUint("stream.max_pending_lines"),
		},
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Brokers:  v.GetString("eventstream.brokers"),
			Topic:    v.GetString("eventstream.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. Every key gets a default so AutomaticEnv can
// resolve it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("gateway.base_url", d.Gateway.BaseURL)
	v.SetDefault("gateway.api_key", d.Gateway.APIKey)
	v.SetDefault("gateway.model", d.Gateway.Model)
	v.SetDefault("gateway.temperature", d.Gateway.Temperature)
	v.SetDefault("gateway.timeout", d.Gateway.Timeout)

	v.SetDefault("proxy.listen", d.Proxy.Listen)
	v.SetDefault("proxy.prompts_dir", d.Proxy.PromptsDir)
	v.SetDefault("proxy.workers", d.Proxy.Workers)
	v.SetDefault("proxy.queue_size", d.Proxy.QueueSize)
	v.SetDefault("proxy.forward_conversation_id", d.Proxy.ForwardConversationID)

	v.SetDefault("client.proxy_target", d.Client.ProxyTarget)
	v.SetDefault("client.render", d.Client.Render)

	v.SetDefault("stream.max_buffer_bytes", d.Stream.MaxBufferBytes)
	v.SetDefault("stream.max_pending_bytes", d.Stream.MaxPendingBytes)
	v.SetDefault("stream.max_pending_lines", d.Stream.MaxPendingLines)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)
}

package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent promptsmith configuration stored as
// config.toml in the .promptsmith/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Gateway     GatewayConfig     `toml:"gateway"`
	Proxy       ProxyConfig       `toml:"proxy"`
	Client      ClientConfig      `toml:"client"`
	Stream      StreamConfig      `toml:"stream"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// GatewayConfig holds settings for the upstream OpenAI-compatible LLM gateway.
type GatewayConfig struct {
	BaseURL     string  `toml:"base_url,omitempty"`
	APIKey      string  `toml:"api_key,omitempty"`
	Model       string  `toml:"model,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`

	// Timeout is a Go duration string, e.g. "5m".
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout, returning 0 when it is empty or invalid.
func (g GatewayConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ProxyConfig holds settings for the prompt-generation proxy service.
type ProxyConfig struct {
	Listen     string `toml:"listen,omitempty"`
	PromptsDir string `toml:"prompts_dir,omitempty"`
	Workers    uint   `toml:"workers,omitempty"`
	QueueSize  uint   `toml:"queue_size,omitempty"`

	// ForwardConversationID sends the request's conversation id upstream.
	ForwardConversationID bool `toml:"forward_conversation_id,omitempty"`
}

// ClientConfig holds settings for CLI commands.
type ClientConfig struct {
	// ProxyTarget is the full URL of a running promptsmith proxy. When set,
	// the CLI streams through the proxy instead of calling the gateway
	// directly.
	ProxyTarget string `toml:"proxy_target,omitempty"`

	// Render formats final assistant output as markdown.
	Render bool `toml:"render,omitempty"`
}

// StreamConfig bounds the streaming decoder and interpreter.
type StreamConfig struct {
	MaxBufferBytes  uint `toml:"max_buffer_bytes,omitempty"`
	MaxPendingBytes uint `toml:"max_pending_bytes,omitempty"`
	MaxPendingLines uint `toml:"max_pending_lines,omitempty"`
}

// StorageConfig selects the conversation history backend. Postgres wins when
// both are set; neither means in-memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig configures turn event publishing.
type EventStreamConfig struct {
	// Provider is "kafka" or empty for disabled.
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma separated list of host:port pairs.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers into its non-empty entries.
func (e EventStreamConfig) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"gateway.base_url": stringKey(func(c *Config) *string { return &c.Gateway.BaseURL }),
	"gateway.api_key":  stringKey(func(c *Config) *string { return &c.Gateway.APIKey }),
	"gateway.model":    stringKey(func(c *Config) *string { return &c.Gateway.Model }),
	"gateway.timeout": {
		get: func(c *Config) string { return c.Gateway.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for gateway.timeout: %w", err)
			}
			c.Gateway.Timeout = v
			return nil
		},
	},
	"gateway.temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Gateway.Temperature, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for gateway.temperature: %w", err)
			}
			if f < 0 || f > 2 {
				return fmt.Errorf("invalid value for gateway.temperature: %v is outside [0, 2]", f)
			}
			c.Gateway.Temperature = f
			return nil
		},
	},

	"proxy.listen":                  stringKey(func(c *Config) *string { return &c.Proxy.Listen }),
	"proxy.prompts_dir":             stringKey(func(c *Config) *string { return &c.Proxy.PromptsDir }),
	"proxy.workers":                 uintKey("proxy.workers", func(c *Config) *uint { return &c.Proxy.Workers }),
	"proxy.queue_size":              uintKey("proxy.queue_size", func(c *Config) *uint { return &c.Proxy.QueueSize }),
	"proxy.forward_conversation_id": boolKey("proxy.forward_conversation_id", func(c *Config) *bool { return &c.Proxy.ForwardConversationID }),

	"client.proxy_target": stringKey(func(c *Config) *string { return &c.Client.ProxyTarget }),
	"client.render":       boolKey("client.render", func(c *Config) *bool { return &c.Client.Render }),

	"stream.max_buffer_bytes":  uintKey("stream.max_buffer_bytes", func(c *Config) *uint { return &c.Stream.MaxBufferBytes }),
	"stream.max_pending_bytes": uintKey("stream.max_pending_bytes", func(c *Config) *uint { return &c.Stream.MaxPendingBytes }),
	"stream.max_pending_lines": uintKey("stream.max_pending_lines", func(c *Config) *uint { return &c.Stream.MaxPendingLines }),

	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error {
			if v != "" && v != EventStreamKafka {
				return fmt.Errorf("invalid value for eventstream.provider: %q (available: %s)", v, EventStreamKafka)
			}
			c.EventStream.Provider = v
			return nil
		},
	},
	"eventstream.brokers": stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":   stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}

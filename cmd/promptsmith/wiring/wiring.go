// Package wiring builds the runtime dependencies of promptsmith commands from
// the resolved configuration: loggers, the gateway client, the history store
// and the turn event publisher.
package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/eventstream"
	"github.com/papercomputeco/promptsmith/pkg/eventstream/kafka"
	"github.com/papercomputeco/promptsmith/pkg/eventstream/nop"
	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/pkg/storage/inmemory"
	"github.com/papercomputeco/promptsmith/pkg/storage/postgres"
	"github.com/papercomputeco/promptsmith/pkg/storage/sqlite"
	"github.com/papercomputeco/promptsmith/pkg/stream"
)

// LoadConfig resolves the configuration for cmd: registered flags bound to
// flagKeys win over PROMPTSMITH_* environment variables, which win over
// config.toml and the defaults.
func LoadConfig(cmd *cobra.Command, flagKeys ...string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return config.FromViper(v), nil
}

// NewCLILogger returns the human readable logger used by interactive
// commands. Records go to stderr so they never mix with streamed output.
func NewCLILogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logger.New(
		logger.WithDebug(debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
		logger.WithComponent(cmd.Name()),
	)
}

// NewServiceLogger returns the JSON logger used by the proxy service.
func NewServiceLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	return logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithComponent("proxy"),
	)
}

// NewGatewayClient returns a client for the upstream gateway, or for the
// promptsmith proxy when cfg.Client.ProxyTarget is set and viaProxy is true.
func NewGatewayClient(cfg *config.Config, viaProxy bool, log *slog.Logger) (*gateway.Client, error) {
	gc := gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		APIKey:  cfg.Gateway.APIKey,
		Timeout: cfg.Gateway.TimeoutDuration(),
		Logger:  log,
	}
	if viaProxy && cfg.Client.ProxyTarget != "" {
		gc.BaseURL = cfg.Client.ProxyTarget
		gc.Path = gateway.GeneratePromptPath
	}

	client, err := gateway.New(gc)
	if err != nil {
		return nil, fmt.Errorf("creating gateway client: %w", err)
	}
	return client, nil
}

// StreamOptions converts the stream limits in cfg into session options.
func StreamOptions(cfg *config.Config) []stream.Option {
	return []stream.Option{
		stream.WithMaxBufferBytes(int(cfg.Stream.MaxBufferBytes)),
		stream.WithMaxPendingBytes(int(cfg.Stream.MaxPendingBytes)),
		stream.WithMaxPendingLines(int(cfg.Stream.MaxPendingLines)),
	}
}

// NewStorageDriver opens the configured history store. PostgreSQL wins over
// SQLite; with neither configured history lives in memory.
func NewStorageDriver(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Driver, error) {
	switch {
	case cfg.Storage.PostgresDSN != "":
		driver, err := postgres.NewDriver(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL storer: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return driver, nil

	case cfg.Storage.SQLitePath != "":
		driver, err := sqlite.NewDriver(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		log.Info("using SQLite storage", "path", cfg.Storage.SQLitePath)
		return driver, nil

	default:
		log.Info("using in-memory storage")
		return inmemory.NewDriver(), nil
	}
}

// NewPublisher returns the configured turn event publisher.
func NewPublisher(cfg *config.Config, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.EventStream.Provider {
	case "":
		return nop.NewPublisher(log), nil

	case config.EventStreamKafka:
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.EventStream.BrokerList(),
			Topic:   cfg.EventStream.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		log.Info("publishing turn events to kafka",
			"brokers", cfg.EventStream.Brokers,
			"topic", cfg.EventStream.Topic,
		)
		return pub, nil

	default:
		return nil, fmt.Errorf("%w: %q", eventstream.ErrUnknownProvider, cfg.EventStream.Provider)
	}
}

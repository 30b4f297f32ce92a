// Package servecmder provides the serve command that runs the prompt
// generation HTTP service.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/promptsmith/cmd/promptsmith/wiring"
	"github.com/papercomputeco/promptsmith/pkg/config"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/proxy"
)

type serveCommander struct {
	flags serveFlags
	cfg   *config.Config

	logger *slog.Logger
}

// serveFlags are the flag targets; their resolved values are read back
// through viper.
type serveFlags struct {
	baseURL, apiKey, model, timeout string
	listen, promptsDir              string
	workers                         uint
	forwardConvID                   bool
	maxPendingBytes                 uint
	maxPendingLines                 uint
	sqlitePath, postgresDSN         string
	esProvider, esBrokers, esTopic  string
}

var serveFlagKeys = []string{
	config.FlagBaseURL,
	config.FlagAPIKey,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagListen,
	config.FlagPromptsDir,
	config.FlagWorkers,
	config.FlagForwardConvID,
	config.FlagMaxPendingBytes,
	config.FlagMaxPendingLines,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEventStreamProv,
	config.FlagEventStreamBroks,
	config.FlagEventStreamTopic,
}

const serveLongDesc string = `Run the promptsmith prompt generation service.

Endpoints:
  POST   /v1/generate-prompt            Stream a reply to a conversation
  POST   /v1/generate-enhanced-prompt   Stream a generated system prompt
  POST   /v1/test-prompt                Run a prompt against a test input
  GET    /v1/conversations              List stored conversations
  GET    /v1/conversations/:id          Show a stored conversation
  DELETE /v1/conversations/:id          Delete a stored conversation
  POST   /mcp                           MCP tools over streamable HTTP
  GET    /healthz                       Health check

Streamed replies are forwarded to the client byte for byte and stored once
the turn ends. History is kept in PostgreSQL (--postgres), SQLite (--sqlite)
or in memory. Finished turns can be published to Kafka.

System prompts can be overridden by <name>.md files in --prompts-dir; the
directory is watched and edits apply without a restart.`

const serveShortDesc string = "Run the prompt generation service"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := wiring.LoadConfig(cmd, serveFlagKeys...)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = wiring.NewServiceLogger(cmd)
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &f.baseURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIKey, &f.apiKey)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &f.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagTimeout, &f.timeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagPromptsDir, &f.promptsDir)
	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &f.workers)
	config.AddBoolFlag(cmd, config.Flags, config.FlagForwardConvID, &f.forwardConvID)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxPendingBytes, &f.maxPendingBytes)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxPendingLines, &f.maxPendingLines)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &f.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &f.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamProv, &f.esProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamBroks, &f.esBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTopic, &f.esTopic)

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := c.cfg

	driver, err := wiring.NewStorageDriver(ctx, cfg, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := wiring.NewPublisher(cfg, c.logger)
	if err != nil {
		return err
	}

	client, err := wiring.NewGatewayClient(cfg, false, c.logger)
	if err != nil {
		return err
	}

	library, err := prompts.New(cfg.Proxy.PromptsDir, c.logger)
	if err != nil {
		return fmt.Errorf("loading prompts: %w", err)
	}
	if cfg.Proxy.PromptsDir != "" {
		go func() {
			if err := library.Watch(ctx, nil); err != nil {
				c.logger.Error("prompt watcher stopped", "dir", cfg.Proxy.PromptsDir, "error", err)
			}
		}()
	}

	p, err := proxy.New(proxy.Config{
		ListenAddr:            cfg.Proxy.Listen,
		Upstream:              client,
		Model:                 cfg.Gateway.Model,
		Temperature:           cfg.Gateway.Temperature,
		ForwardConversationID: cfg.Proxy.ForwardConversationID,
		Prompts:               library,
		StreamOptions:         wiring.StreamOptions(cfg),
		Publisher:             publisher,
		Workers:               cfg.Proxy.Workers,
		QueueSize:             cfg.Proxy.QueueSize,
	}, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating proxy: %w", err)
	}
	defer p.Close()

	c.logger.Info("starting promptsmith service",
		"listen", cfg.Proxy.Listen,
		"gateway", client.Endpoint(),
		"model", cfg.Gateway.Model,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("proxy error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	}
}

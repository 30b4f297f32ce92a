// Package proxy provides the promptsmith HTTP service: it streams prompt
// generation from the upstream LLM gateway to the client, folds the same bytes
// into a conversation and persists finished turns.
package proxy

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/storage"
	"github.com/papercomputeco/promptsmith/proxy/header"
	promptmcp "github.com/papercomputeco/promptsmith/proxy/mcp"
	"github.com/papercomputeco/promptsmith/proxy/worker"
)

// allowedHeaders are the CORS request headers browsers may send.
const allowedHeaders = "authorization, x-client-info, apikey, content-type"

// mcpPath serves the MCP tools over streamable HTTP.
const mcpPath = "/mcp"

// Proxy is the prompt-generation service. Streaming responses are forwarded
// verbatim while finished turns are enqueued for async storage via its
// worker pool.
type Proxy struct {
	config        Config
	driver        storage.Driver
	workerPool    *worker.Pool
	logger        *slog.Logger
	server        *fiber.App
	validate      *validator.Validate
	headerHandler *header.Handler

	// streams tracks turns still being folded after their response was
	// handed to fiber.
	streams sync.WaitGroup
}

// New creates a new Proxy.
// The driver is injected to handle async persistence of conversation turns.
func New(config Config, driver storage.Driver, log *slog.Logger) (*Proxy, error) {
	if config.Upstream == nil {
		return nil, errors.New("upstream is required")
	}
	if config.Prompts == nil {
		return nil, errors.New("prompt library is required")
	}
	if driver == nil {
		return nil, errors.New("storage driver is required")
	}
	if config.Temperature == 0 {
		config.Temperature = defaultTemperature
	}
	log = logger.OrNop(log)

	wp, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Publisher:  config.Publisher,
		NumWorkers: config.Workers,
		QueueSize:  config.QueueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  allowedHeaders,
		ExposeHeaders: header.ConversationIDHeader,
	}))
	// Streamed responses must reach the client chunk by chunk.
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/v1/generate") || c.Path() == mcpPath
		},
	}))
	app.Use(requestLogger(log))

	p := &Proxy{
		config:        config,
		driver:        driver,
		workerPool:    wp,
		logger:        log,
		server:        app,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		headerHandler: header.NewHandler(),
	}

	mcpServer, err := promptmcp.NewServer(promptmcp.Config{
		Completer:   config.Upstream,
		Prompts:     config.Prompts,
		Driver:      driver,
		Model:       config.Model,
		Temperature: config.Temperature,
		Logger:      log,
	})
	if err != nil {
		wp.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	app.Get("/healthz", p.handleHealth)
	app.All(mcpPath, adaptor.HTTPHandler(mcpServer.Handler()))

	v1 := app.Group("/v1")
	v1.Post("/generate-prompt", p.handleGeneratePrompt)
	v1.Post("/generate-enhanced-prompt", p.handleGenerateEnhancedPrompt)
	v1.Post("/test-prompt", p.handleTestPrompt)
	v1.Get("/conversations", p.handleListConversations)
	v1.Get("/conversations/:id", p.handleGetConversation)
	v1.Delete("/conversations/:id", p.handleDeleteConversation)

	return p, nil
}

// Run starts the proxy server on the configured listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting proxy server",
		"listen", p.config.ListenAddr,
		"model", p.config.Model,
	)

	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting proxy server",
		"listen", listener.Addr().String(),
		"model", p.config.Model,
	)

	return p.server.Listener(listener)
}

// Close gracefully shuts down the proxy, waits for streaming turns to finish
// and for the worker pool to drain.
func (p *Proxy) Close() error {
	err := p.server.Shutdown()
	p.streams.Wait()
	p.workerPool.Close()
	return err
}

func (p *Proxy) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// requestLogger logs one line per request at debug level.
func requestLogger(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.Debug("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}

// Package gateway is a client for OpenAI-compatible chat-completions
// endpoints: the upstream LLM gateway, or the promptsmith proxy in front of
// it.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/llm/provider/openai"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/sse"
)

const (
	// ChatCompletionsPath is the upstream gateway endpoint.
	ChatCompletionsPath = "/chat/completions"

	// GeneratePromptPath is the promptsmith proxy endpoint.
	GeneratePromptPath = "/v1/generate-prompt"

	defaultTimeout = 5 * time.Minute
)

// Config configures a Client.
type Config struct {
	// BaseURL is the endpoint root, e.g. "http://localhost:11434/v1".
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Path is appended to BaseURL. Defaults to ChatCompletionsPath.
	Path string

	// Timeout bounds a whole request, streaming included.
	Timeout time.Duration

	// HTTPClient overrides the default client; Timeout is then ignored.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to a chat-completions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Client for cfg.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway url %q: %w", cfg.BaseURL, err)
	}

	path := cfg.Path
	if path == "" {
		path = ChatCompletionsPath
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:   strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.TrimPrefix(path, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger.OrNop(cfg.Logger),
	}, nil
}

// Endpoint returns the full request URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Stream sends req with streaming enabled and returns the raw
// server-sent-events body. The caller must close it. Cancelling ctx aborts
// reads from the body.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error) {
	out := *req
	out.Stream = llm.Bool(true)

	resp, err := c.do(ctx, &out, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, sse.ErrNoBody
	}
	return resp.Body, nil
}

// Complete sends req without streaming and parses the reply.
func (c *Client) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	out := *req
	out.Stream = llm.Bool(false)

	resp, err := c.do(ctx, &out, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	parsed, err := openai.ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing gateway response: %w", err)
	}
	return parsed, nil
}

func (c *Client) do(ctx context.Context, req *llm.ChatRequest, accept string) (*http.Response, error) {
	payload, err := openai.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	for k, v := range headersFrom(ctx) {
		for _, vv := range v {
			httpReq.Header.Add(k, vv)
		}
	}

	c.logger.Debug("sending gateway request",
		"url", c.endpoint,
		"model", req.Model,
		"messages", len(req.Messages),
		"stream", req.Stream != nil && *req.Stream,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		c.logger.Error("gateway returned error",
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, NewStatusError(resp.StatusCode, body)
	}

	return resp, nil
}

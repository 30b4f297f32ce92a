// Package chat runs conversation turns: it sends the conversation upstream,
// streams the reply into it and hands the finished turn to a hook.
package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/llm"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/stream"
)

// ErrTurnInFlight is returned when a turn starts while another is running.
var ErrTurnInFlight = errors.New("a response is already streaming")

// Opener opens a streamed chat-completions response.
type Opener interface {
	Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error)
}

// TurnHook is called after every turn sent with Send, whether it completed
// or failed.
type TurnHook func(ctx context.Context, conv *conversation.State, res *stream.Result)

// Config configures a Service.
type Config struct {
	Opener Opener

	Model       string
	System      string
	Temperature *float64

	// SendConversationID includes the conversation id in requests. Only the
	// promptsmith proxy understands it.
	SendConversationID bool

	// StreamOptions apply to every session.
	StreamOptions []stream.Option

	OnTurn TurnHook

	Logger *slog.Logger
}

// Service runs one turn at a time.
type Service struct {
	cfg      Config
	logger   *slog.Logger
	inFlight atomic.Bool
}

// New returns a Service for cfg.
func New(cfg Config) (*Service, error) {
	if cfg.Opener == nil {
		return nil, errors.New("chat opener is required")
	}
	return &Service{
		cfg:    cfg,
		logger: logger.OrNop(cfg.Logger),
	}, nil
}

// Busy reports whether a turn is running.
func (s *Service) Busy() bool {
	return s.inFlight.Load()
}

// Send appends userMsg to conv and streams the assistant reply into it.
// Cancelling ctx aborts the turn; text received so far stays in conv.
func (s *Service) Send(ctx context.Context, conv *conversation.State, userMsg llm.Message) (*stream.Result, error) {
	return s.turn(ctx, conv, userMsg, s.cfg.OnTurn)
}

// Complete runs prompt as a single-message turn on a fresh conversation and
// returns the reply text. The turn hook is not called.
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	res, err := s.turn(ctx, conversation.New(), llm.NewTextMessage(llm.RoleUser, prompt), nil)
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func (s *Service) turn(ctx context.Context, conv *conversation.State, userMsg llm.Message, hook TurnHook) (*stream.Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrTurnInFlight
	}
	defer s.inFlight.Store(false)

	if _, err := conv.Append(userMsg); err != nil {
		return nil, err
	}

	req := &llm.ChatRequest{
		Model:       s.cfg.Model,
		System:      s.cfg.System,
		Messages:    conv.Messages(),
		Temperature: s.cfg.Temperature,
	}
	if s.cfg.SendConversationID {
		req.ConversationID = conv.ID()
	}

	opts := append([]stream.Option{stream.WithLogger(s.logger)}, s.cfg.StreamOptions...)
	session := stream.NewSession(conv, opts...)
	start := time.Now()

	var (
		res *stream.Result
		err error
	)
	body, openErr := s.cfg.Opener.Stream(ctx, req)
	if openErr != nil {
		session.Fail(openErr)
		res = session.Result()
		err = res.Err
	} else {
		res, err = session.Run(ctx, body)
		body.Close()
	}

	if s.cfg.Model != "" {
		conv.SetModel(s.cfg.Model)
	}

	s.logger.Debug("turn finished",
		"conversation", conv.ID(),
		"state", res.State.String(),
		"deltas", res.Deltas,
		"dropped_fragments", res.DroppedFragments,
		"duration", time.Since(start),
	)

	if hook != nil {
		hook(ctx, conv, res)
	}
	return res, err
}

// Package stream folds a streamed chat-completions response into a
// conversation. A Session owns one turn: it decodes the body into lines,
// interprets each line and appends the assistant text as it arrives.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/papercomputeco/promptsmith/pkg/conversation"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/sse"
)

// Result summarises a finished session.
type Result struct {
	State State

	// Deltas is the number of content deltas folded into the conversation.
	Deltas int

	// Content is the assistant text received during this session.
	Content string

	// MessageIndex is the index of the assistant message, or -1 when no
	// text arrived.
	MessageIndex int

	// DroppedFragments counts malformed fragments that were given up on.
	DroppedFragments int

	// Discarded is the partial trailing line dropped at the end of the
	// stream.
	Discarded string

	Err error
}

// Session streams one assistant reply into a conversation.
type Session struct {
	conv   *conversation.State
	opts   options
	logger *slog.Logger

	decoder     *sse.Decoder
	interpreter *Interpreter

	mu        sync.Mutex
	state     State
	err       error
	deltas    int
	content   strings.Builder
	index     int
	discarded string
}

// NewSession returns an Idle session that writes into conv.
func NewSession(conv *conversation.State, opts ...Option) *Session {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	l := logger.OrNop(o.logger)

	return &Session{
		conv:        conv,
		opts:        o,
		logger:      l,
		decoder:     sse.NewDecoder(o.maxBufferBytes),
		interpreter: NewInterpreter(o.maxPendingBytes, o.maxPendingLines, l),
		index:       -1,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Feed hands the session the next chunk of decoded text. It returns false
// once the session has reached a terminal state and wants no more input.
func (s *Session) Feed(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return false
	}
	s.state = Streaming

	if _, err := s.decoder.Write(chunk); err != nil {
		s.failLocked(&TransportError{Err: err})
		return false
	}

	for {
		line, ok := s.decoder.Next()
		if !ok {
			return true
		}

		out := s.interpreter.Interpret(line)
		switch out.Kind {
		case Delta:
			s.applyLocked(out.Text)
		case Deferred:
			// Remaining lines wait in the decoder for the next chunk.
			return true
		case Done:
			s.completeLocked()
			return false
		}
	}
}

// Finish ends the stream normally. Lines still buffered are interpreted
// first; a pending fragment and a partial trailing line are dropped.
func (s *Session) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return
	}

	for {
		line, ok := s.decoder.Next()
		if !ok {
			break
		}
		out := s.interpreter.Interpret(line)
		if out.Kind == Delta {
			s.applyLocked(out.Text)
		}
		if out.Kind == Done {
			break
		}
	}
	s.completeLocked()
}

// Fail ends the session with err. An Idle session fails with
// ErrStreamUnavailable wrapped around err; text that already arrived stays
// in the conversation.
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLocked(err)
}

// Run reads body to the end and returns the result. The error is non-nil
// exactly when the session failed. Cancelling ctx aborts the read loop; to
// interrupt a blocked read the caller should tie the body to ctx, as an
// HTTP response body is.
func (s *Session) Run(ctx context.Context, body io.Reader) (*Result, error) {
	if body == nil {
		s.Fail(sse.ErrNoBody)
		res := s.Result()
		return res, res.Err
	}

	readerOpts := []sse.ReaderOption{sse.WithChunkSize(s.opts.chunkSize)}
	if s.opts.tee != nil {
		readerOpts = append(readerOpts, sse.WithTee(s.opts.tee))
	}
	reader := sse.NewReader(body, readerOpts...)

	for {
		if err := ctx.Err(); err != nil {
			s.Fail(&TransportError{Err: err})
			break
		}

		chunk, err := reader.Chunk()
		if errors.Is(err, io.EOF) {
			s.Finish()
			break
		}
		if err != nil {
			s.Fail(&TransportError{Err: err})
			break
		}

		if !s.Feed(chunk) {
			if s.opts.tee != nil && s.State() == Completed {
				if err := reader.Drain(); err != nil {
					s.logger.Debug("draining response after completion", "error", err)
				}
			}
			break
		}
	}

	res := s.Result()
	return res, res.Err
}

// Result returns a snapshot of the session's outcome so far.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Result{
		State:            s.state,
		Deltas:           s.deltas,
		Content:          s.content.String(),
		MessageIndex:     s.index,
		DroppedFragments: s.interpreter.Dropped(),
		Discarded:        s.discarded,
		Err:              s.err,
	}
}

func (s *Session) applyLocked(text string) {
	s.index = s.conv.AppendDelta(text)
	s.deltas++
	s.content.WriteString(text)
}

func (s *Session) completeLocked() {
	s.interpreter.Flush()
	s.discarded = s.decoder.Discard()
	s.state = Completed
	s.conv.Seal()
	s.logger.Debug("stream completed",
		"deltas", s.deltas,
		"dropped_fragments", s.interpreter.Dropped(),
		"discarded_bytes", len(s.discarded),
	)
}

func (s *Session) failLocked(err error) {
	if s.state.Terminal() {
		return
	}
	if s.state == Idle && !errors.Is(err, ErrStreamUnavailable) {
		err = fmt.Errorf("%w: %w", ErrStreamUnavailable, err)
	}
	s.err = err
	s.state = Failed
	s.decoder.Discard()
	s.conv.Seal()
	s.logger.Debug("stream failed", "error", err, "deltas", s.deltas)
}

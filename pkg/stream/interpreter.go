package stream

import (
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/promptsmith/pkg/llm/provider/openai"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/sse"
	"github.com/papercomputeco/promptsmith/pkg/utils"
)

const (
	// DefaultMaxPendingBytes bounds a pending malformed fragment.
	DefaultMaxPendingBytes = 1 << 20

	// DefaultMaxPendingLines bounds how many lines a pending fragment may
	// absorb before it is given up on.
	DefaultMaxPendingLines = 16
)

// Kind is what a single line meant to the session.
type Kind int

const (
	// Ignored lines change nothing.
	Ignored Kind = iota

	// Delta lines carry assistant text.
	Delta

	// Deferred lines did not parse and are held as a pending fragment.
	// The session stops processing the current chunk.
	Deferred

	// Done is the end-of-stream sentinel.
	Done
)

func (k Kind) String() string {
	switch k {
	case Ignored:
		return "ignored"
	case Delta:
		return "delta"
	case Deferred:
		return "deferred"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Outcome is the result of interpreting one line.
type Outcome struct {
	Kind Kind
	Text string
}

// Interpreter turns SSE lines into outcomes. A data line whose payload does
// not parse is held as a pending fragment, and the next line is appended to
// it and parsed again. A fresh data line replaces a fragment that never
// completed; blank and comment lines leave it alone.
type Interpreter struct {
	maxBytes int
	maxLines int
	logger   *slog.Logger

	pending      string
	pendingLines int
	dropped      int
}

// NewInterpreter returns an Interpreter with the given bounds on a pending
// fragment. Non-positive bounds select the defaults.
func NewInterpreter(maxBytes, maxLines int, l *slog.Logger) *Interpreter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPendingBytes
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxPendingLines
	}
	return &Interpreter{
		maxBytes: maxBytes,
		maxLines: maxLines,
		logger:   logger.OrNop(l),
	}
}

// Interpret classifies line.
func (i *Interpreter) Interpret(line string) Outcome {
	if i.pending == "" {
		return i.interpretFresh(line)
	}

	joined := i.pending + line
	if payload, ok := sse.Payload(joined); ok {
		if out, ok := decode(payload); ok {
			i.clear()
			return out
		}
	}

	if sse.IsIgnorable(line) {
		return Outcome{Kind: Ignored}
	}

	if _, ok := sse.Payload(line); ok {
		i.drop("superseded by a new data line")
		return i.interpretFresh(line)
	}

	return i.hold(joined)
}

func (i *Interpreter) interpretFresh(line string) Outcome {
	if sse.IsIgnorable(line) {
		return Outcome{Kind: Ignored}
	}

	payload, ok := sse.Payload(line)
	if !ok {
		return Outcome{Kind: Ignored}
	}

	if out, ok := decode(payload); ok {
		return out
	}
	return i.hold(line)
}

func (i *Interpreter) hold(fragment string) Outcome {
	i.pending = fragment
	i.pendingLines++
	if len(i.pending) > i.maxBytes || i.pendingLines > i.maxLines {
		i.drop("fragment exceeds limits")
		return Outcome{Kind: Ignored}
	}
	return Outcome{Kind: Deferred}
}

// Pending returns the fragment awaiting more input.
func (i *Interpreter) Pending() string {
	return i.pending
}

// Dropped returns how many fragments have been given up on.
func (i *Interpreter) Dropped() int {
	return i.dropped
}

// Flush gives up on any pending fragment. It reports whether there was one.
func (i *Interpreter) Flush() bool {
	if i.pending == "" {
		return false
	}
	i.drop("stream ended")
	return true
}

func (i *Interpreter) drop(reason string) {
	i.dropped++
	i.logger.Debug("dropping malformed fragment",
		"error", &MalformedFrameError{Fragment: utils.Truncate(i.pending, 120), Reason: reason},
		"lines", i.pendingLines,
	)
	i.clear()
}

func (i *Interpreter) clear() {
	i.pending = ""
	i.pendingLines = 0
}

// decode reports ok == false when payload is not valid JSON.
func decode(payload string) (Outcome, bool) {
	if payload == sse.DoneSentinel {
		return Outcome{Kind: Done}, true
	}
	if !gjson.Valid(payload) {
		return Outcome{}, false
	}

	content := gjson.Get(payload, openai.StreamDeltaPath)
	if content.Type != gjson.String || content.Str == "" {
		return Outcome{Kind: Ignored}, true
	}
	return Outcome{Kind: Delta, Text: content.Str}, true
}

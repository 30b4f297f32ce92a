package stream

import (
	"io"
	"log/slog"

	"github.com/papercomputeco/promptsmith/pkg/sse"
)

// Option configures a Session.
type Option func(*options)

type options struct {
	maxPendingBytes int
	maxPendingLines int
	maxBufferBytes  int
	chunkSize       int
	tee             io.Writer
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		maxPendingBytes: DefaultMaxPendingBytes,
		maxPendingLines: DefaultMaxPendingLines,
		maxBufferBytes:  sse.DefaultMaxBufferBytes,
	}
}

// WithMaxPendingBytes bounds a pending malformed fragment.
func WithMaxPendingBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPendingBytes = n
		}
	}
}

// WithMaxPendingLines bounds how many lines a pending fragment may absorb.
func WithMaxPendingLines(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPendingLines = n
		}
	}
}

// WithMaxBufferBytes bounds the decoder's unresolved tail.
func WithMaxBufferBytes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBufferBytes = n
		}
	}
}

// WithChunkSize sets how many bytes Run reads from the body at a time.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithTee copies the raw response bytes to w while Run reads them. After
// the end-of-stream sentinel the rest of the body is still copied.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

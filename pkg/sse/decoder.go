// Package sse turns a chunked HTTP response body into the ordered sequence
// of server-sent-event lines. It knows nothing about payloads: deciding what
// a "data:" line means is left to the caller.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"bytes"
	"errors"
	"strings"
)

// DefaultMaxBufferBytes bounds how much text the decoder holds without
// seeing a newline.
const DefaultMaxBufferBytes = 1 << 20

var (
	// ErrNoBody is returned when there is no response body to read.
	ErrNoBody = errors.New("sse: no response body")

	// ErrBufferOverflow is returned when the unresolved tail of the stream
	// grows past the decoder's limit without a line break.
	ErrBufferOverflow = errors.New("sse: line exceeds buffer limit")
)

// Decoder splits written text into lines. It holds exactly the suffix of the
// stream that has not yet been returned by Next.
//
// Lines are split on "\n" with one trailing "\r" stripped, so splitting the
// same stream at any byte positions yields the same lines.
type Decoder struct {
	buf []byte
	max int
}

// NewDecoder returns a Decoder that fails writes once the buffered tail
// exceeds maxBytes without a newline. A non-positive maxBytes selects
// DefaultMaxBufferBytes.
func NewDecoder(maxBytes int) *Decoder {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBufferBytes
	}
	return &Decoder{max: maxBytes}
}

// Write appends p to the buffer. It never short-writes; the only error is
// ErrBufferOverflow, in which case p has still been buffered.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	if len(d.buf) > d.max && bytes.IndexByte(d.buf, '\n') < 0 {
		return len(p), ErrBufferOverflow
	}
	return len(p), nil
}

// Next removes and returns the next complete line. ok is false when the
// buffer holds no newline, meaning the caller should wait for more input.
func (d *Decoder) Next() (line string, ok bool) {
	i := bytes.IndexByte(d.buf, '\n')
	if i < 0 {
		return "", false
	}

	raw := d.buf[:i]
	if n := len(raw); n > 0 && raw[n-1] == '\r' {
		raw = raw[:n-1]
	}
	line = strings.ToValidUTF8(string(raw), "�")

	d.buf = d.buf[i+1:]
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return line, true
}

// Remainder returns the buffered partial line without consuming it.
func (d *Decoder) Remainder() string {
	return strings.ToValidUTF8(string(d.buf), "�")
}

// Buffered reports how many bytes are waiting in the buffer.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Discard drops everything buffered and returns what was dropped.
func (d *Decoder) Discard() string {
	rest := d.Remainder()
	d.buf = nil
	return rest
}

package sse

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const defaultChunkSize = 4096

// Reader pulls decoded text chunks off a response body.
//
// ┌──────────────────┐
// │ body io.Reader   │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ raw bytes        │──▶│ tee io.Writer         │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ UTF-8 decoding   │
// └──────────────────┘
// │
// ▼
// Reader.Chunk()
//
// Invalid byte sequences become U+FFFD, and a multi-byte character split
// across reads is held back until it is complete.
type Reader struct {
	src io.Reader
	buf []byte
	err error
}

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	tee       io.Writer
	chunkSize int
}

// WithTee copies the raw, undecoded bytes of the body to w as they are read.
func WithTee(w io.Writer) ReaderOption {
	return func(c *readerConfig) {
		c.tee = w
	}
}

// WithChunkSize sets the size of a single read from the body.
func WithChunkSize(n int) ReaderOption {
	return func(c *readerConfig) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// NewReader wraps body. A nil body produces a Reader whose Chunk returns
// ErrNoBody.
func NewReader(body io.Reader, opts ...ReaderOption) *Reader {
	cfg := readerConfig{chunkSize: defaultChunkSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	if body == nil {
		return &Reader{err: ErrNoBody}
	}

	src := body
	if cfg.tee != nil {
		src = io.TeeReader(src, cfg.tee)
	}

	return &Reader{
		src: transform.NewReader(src, unicode.UTF8.NewDecoder()),
		buf: make([]byte, cfg.chunkSize),
	}
}

// Chunk returns the next chunk of decoded text. It returns either a
// non-empty chunk or an error, never both. io.EOF marks a clean end of the
// body. The returned slice is only valid until the next call.
func (r *Reader) Chunk() ([]byte, error) {
	for r.err == nil {
		n, err := r.src.Read(r.buf)
		if err != nil {
			r.err = err
		}
		if n > 0 {
			return r.buf[:n], nil
		}
	}
	return nil, r.err
}

// Drain reads the rest of the body, so a tee sees every byte, and discards
// the decoded text.
func (r *Reader) Drain() error {
	if r.src == nil {
		return r.err
	}
	_, err := io.Copy(io.Discard, r.src)
	if err == nil {
		r.err = io.EOF
	}
	return err
}

// Package testutils holds fakes shared by promptsmith's test suites.
package testutils

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/papercomputeco/promptsmith/pkg/llm"
)

// SSEBody renders texts as an OpenAI-style stream of deltas terminated by
// the done sentinel.
func SSEBody(texts ...string) string {
	var sb strings.Builder
	for _, text := range texts {
		chunk, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"delta": map[string]any{"content": text}}},
		})
		sb.WriteString("data: ")
		sb.Write(chunk)
		sb.WriteString("\n\n")
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

// MockOpener returns canned stream bodies and records the requests it saw.
type MockOpener struct {
	mu sync.Mutex

	// Bodies are returned in order; the last one repeats.
	Bodies []string

	// Err, when set, is returned instead of a body.
	Err error

	// Gate, when set, holds every body open until it is closed.
	Gate chan struct{}

	Requests []*llm.ChatRequest
}

// NewMockOpener returns an opener that serves bodies.
func NewMockOpener(bodies ...string) *MockOpener {
	return &MockOpener{Bodies: bodies}
}

func (m *MockOpener) Stream(ctx context.Context, req *llm.ChatRequest) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}

	body := ""
	if n := len(m.Bodies); n > 0 {
		body = m.Bodies[0]
		if n > 1 {
			m.Bodies = m.Bodies[1:]
		}
	}

	var r io.Reader = strings.NewReader(body)
	if m.Gate != nil {
		r = io.MultiReader(r, &gatedReader{ctx: ctx, gate: m.Gate})
	}
	return io.NopCloser(r), nil
}

// LastRequest returns the most recent request.
func (m *MockOpener) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return nil
	}
	return m.Requests[len(m.Requests)-1]
}

type gatedReader struct {
	ctx  context.Context
	gate chan struct{}
}

func (g *gatedReader) Read([]byte) (int, error) {
	select {
	case <-g.gate:
		return 0, io.EOF
	case <-g.ctx.Done():
		return 0, g.ctx.Err()
	}
}

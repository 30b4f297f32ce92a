package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/promptsmith/pkg/gateway"
	"github.com/papercomputeco/promptsmith/pkg/logger"
	"github.com/papercomputeco/promptsmith/pkg/prompts"
	"github.com/papercomputeco/promptsmith/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/promptsmith/pkg/utils/test"
)

const testModel = "gemma3:latest"

// recordingUpstream is a fake LLM gateway that records every request it
// receives and answers with a fixed status and body.
type recordingUpstream struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   [][]byte
	headers  []http.Header
	status   int
	respBody string
	chunks   []string

	// started is closed once a held stream has sent its headers; release
	// lets it continue with the chunks.
	started chan struct{}
	release chan struct{}
}

func newRecordingUpstream() *recordingUpstream {
	u := &recordingUpstream{status: http.StatusOK}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	return u
}

func (u *recordingUpstream) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	u.mu.Lock()
	u.bodies = append(u.bodies, body)
	u.headers = append(u.headers, r.Header.Clone())
	status, respBody, chunks := u.status, u.respBody, u.chunks
	started, release := u.started, u.release
	u.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		io.WriteString(w, respBody)
		return
	}

	if len(chunks) == 0 {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, respBody)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	if release != nil {
		w.WriteHeader(http.StatusOK)
		if flusher != nil {
			flusher.Flush()
		}
		close(started)
		<-release
	}
	for _, chunk := range chunks {
		io.WriteString(w, chunk)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// streams makes the upstream answer with chunks as a server-sent-events body.
func (u *recordingUpstream) streams(chunks ...string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status, u.chunks = http.StatusOK, chunks
}

// hold makes the next stream pause after its headers until the returned
// func is called. The returned channel closes when the pause begins.
func (u *recordingUpstream) hold() (<-chan struct{}, func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.started, u.release = make(chan struct{}), make(chan struct{})
	return u.started, func() { close(u.release) }
}

// replies makes the upstream answer with a plain body.
func (u *recordingUpstream) replies(status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status, u.respBody, u.chunks = status, body, nil
}

func (u *recordingUpstream) lastRequest() map[string]any {
	u.mu.Lock()
	defer u.mu.Unlock()
	Expect(u.bodies).NotTo(BeEmpty())

	var out map[string]any
	Expect(json.Unmarshal(u.bodies[len(u.bodies)-1], &out)).To(Succeed())
	return out
}

func (u *recordingUpstream) lastHeaders() http.Header {
	u.mu.Lock()
	defer u.mu.Unlock()
	Expect(u.headers).NotTo(BeEmpty())
	return u.headers[len(u.headers)-1]
}

func (u *recordingUpstream) requestCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.bodies)
}

type testProxy struct {
	*Proxy
	driver    *inmemory.Driver
	publisher *testutils.MockPublisher
	library   *prompts.Library
}

// newTestProxy creates a Proxy pointed at upstreamURL, using an in-memory
// storage driver and a recording publisher.
func newTestProxy(upstreamURL string) *testProxy {
	client, err := gateway.New(gateway.Config{
		BaseURL: upstreamURL,
		APIKey:  "proxy-key",
	})
	Expect(err).NotTo(HaveOccurred())

	library, err := prompts.New("", nil)
	Expect(err).NotTo(HaveOccurred())

	driver := inmemory.NewDriver()
	publisher := testutils.NewMockPublisher()

	p, err := New(Config{
		ListenAddr: ":0",
		Upstream:   client,
		Model:      testModel,
		Prompts:    library,
		Publisher:  publisher,
	}, driver, logger.Nop())
	Expect(err).NotTo(HaveOccurred())

	return &testProxy{Proxy: p, driver: driver, publisher: publisher, library: library}
}

// post sends body as JSON to path and returns the response.
func (p *testProxy) post(path string, body any, headers ...string) *http.Response {
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		Expect(err).NotTo(HaveOccurred())
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := p.server.Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func (p *testProxy) get(path string) *http.Response {
	resp, err := p.server.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(body)
}

func decodeBody(resp *http.Response, out any) {
	defer resp.Body.Close()
	Expect(json.NewDecoder(resp.Body).Decode(out)).To(Succeed())
}

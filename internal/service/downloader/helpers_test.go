package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/eve-utils/eveclient-downloader/internal/checksum"
	"github.com/eve-utils/eveclient-downloader/internal/domain/manifest"
	"github.com/eve-utils/eveclient-downloader/internal/service/common"
)

const testBuild = 123456

// hostFile is one file published by fakeHost.
type hostFile struct {
	path    string
	content string
}

// fakeHost serves build info, a manifest and files like the binaries host.
type fakeHost struct {
	server *httptest.Server

	mu        sync.Mutex
	hits      map[string]int
	buildInfo string
	manifest  string
	bodies    map[string]string
}

func newFakeHost(t *testing.T, published ...hostFile) *fakeHost {
	t.Helper()

	h := &fakeHost{
		hits:      make(map[string]int),
		buildInfo: fmt.Sprintf(`{"build":"%d","protected":false}`, testBuild),
		bodies:    make(map[string]string),
	}

	lines := make([]string, 0, len(published))
	for _, f := range published {
		suffix := f.path + ".v1"
		h.bodies["/"+suffix] = f.content
		lines = append(lines, fmt.Sprintf("app:/%s,%s,%s", f.path, suffix, strings.ToUpper(checksum.Sum([]byte(f.content)))))
	}

	h.manifest = strings.Join(lines, "\r\n") + "\r\n"

	h.server = httptest.NewServer(http.HandlerFunc(h.serve))
	t.Cleanup(h.server.Close)

	return h
}

func (h *fakeHost) serve(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hits[r.URL.Path]++

	switch r.URL.Path {
	case "/eveclient_TQ.json":
		_, _ = w.Write([]byte(h.buildInfo))
	case fmt.Sprintf("/eveonline_%d.txt", testBuild):
		_, _ = w.Write([]byte(h.manifest))
	default:
		body, ok := h.bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(body))
	}
}

func (h *fakeHost) set(update func(h *fakeHost)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	update(h)
}

func (h *fakeHost) Hits(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.hits[path]
}

// fileHits counts requests for published files, excluding build info and manifest.
func (h *fakeHost) fileHits() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0

	for path, n := range h.hits {
		if _, ok := h.bodies[path]; ok {
			total += n
		}
	}

	return total
}

// fakeGetter answers Get from a map and records every requested URL.
type fakeGetter struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  []string
	closed bool
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{bodies: make(map[string][]byte)}
}

func (f *fakeGetter) Get(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)

	body, ok := f.bodies[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrTransport, url, common.ErrBadHTTPStatus)
	}

	return body, nil
}

func (f *fakeGetter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

func (f *fakeGetter) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// publish registers content under an entry and returns the entry.
func (f *fakeGetter) publish(path, content string) manifest.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := manifest.Entry{
		Path: path,
		URL:  "https://binaries.test/" + path + ".v1",
		Hash: strings.ToUpper(checksum.Sum([]byte(content))),
	}
	f.bodies[entry.URL] = []byte(content)

	return entry
}

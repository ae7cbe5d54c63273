package integration

import (
	"crypto/md5" //nolint:gosec // The binaries host publishes MD5 digests.
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// binariesHost mirrors the layout of the binaries host in a temporary directory
// and serves it over HTTP.
type binariesHost struct {
	root   string
	server *httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

func newBinariesHost(t *testing.T) *binariesHost {
	t.Helper()

	h := &binariesHost{
		root: t.TempDir(),
		hits: make(map[string]int),
	}

	files := http.FileServer(http.Dir(h.root))

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.hits[r.URL.Path]++
		h.mu.Unlock()

		files.ServeHTTP(w, r)
	}))
	t.Cleanup(h.server.Close)

	return h
}

// publish stores files as build of the server with the given code and makes it current.
// Files are keyed by client path; each is stored under a content-addressed suffix.
func (h *binariesHost) publish(t *testing.T, code string, build int, files map[string]string) {
	t.Helper()

	lines := make([]string, 0, len(files))

	for path, content := range files {
		sum := md5.Sum([]byte(content)) //nolint:gosec // The binaries host publishes MD5 digests.
		digest := hex.EncodeToString(sum[:])
		suffix := digest[:2] + "/" + digest + "_" + filepath.Base(path)

		h.write(t, suffix, content)
		lines = append(lines, fmt.Sprintf("app:/%s,%s,%s", path, suffix, digest))
	}

	h.write(t, fmt.Sprintf("eveonline_%d.txt", build), strings.Join(lines, "\r\n"))
	h.write(t, fmt.Sprintf("eveclient_%s.json", code), fmt.Sprintf(`{"build":"%d","protected":false,"platforms":["win"]}`, build))
}

func (h *binariesHost) write(t *testing.T, name, content string) {
	t.Helper()

	path := filepath.Join(h.root, filepath.FromSlash(name))

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// fileHits counts requests outside build info and manifests.
func (h *binariesHost) fileHits() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := 0

	for path, n := range h.hits {
		if strings.HasPrefix(path, "/eveclient_") || strings.HasPrefix(path, "/eveonline_") {
			continue
		}

		total += n
	}

	return total
}

// requireTree checks that every file of want exists under root with the given content.
func requireTree(t *testing.T, root string, want map[string]string) {
	t.Helper()

	for path, content := range want {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
		require.NoError(t, err, path)
		require.Equal(t, content, string(data), path)
	}
}

package downloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eve-utils/eveclient-downloader/internal/config"
	"github.com/eve-utils/eveclient-downloader/internal/domain/server"
)

func TestLoadConfig_Overrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), config.DefaultConfigFilename)

	saved := config.Default()
	saved.Server = server.Singularity.String()
	saved.TargetDir = "/srv/sisi"
	saved.LogLevel = "debug"
	require.NoError(t, config.Save(path, saved))

	cfg, err := loadConfig(&Options{ConfigPath: path, TargetDir: " /srv/other ", CacheDir: "/srv/tq"})
	require.NoError(t, err)
	require.Equal(t, "singularity", cfg.Server)
	require.Equal(t, "/srv/other", cfg.TargetDir)
	require.Equal(t, "/srv/tq", cfg.CacheDir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, config.DefaultBinariesURL, cfg.BinariesURL)

	cfg, err = loadConfig(&Options{})
	require.NoError(t, err)
	require.Equal(t, config.Default().Server, cfg.Server)

	_, err = loadConfig(&Options{Server: "serenity"})
	require.ErrorIs(t, err, server.ErrUnknownServer)

	_, err = loadConfig(&Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestEnsureClientStopped_NothingRunning(t *testing.T) {
	t.Parallel()

	require.NoError(t, ensureClientStopped(context.Background(), []string{"no-such-client-4f1c.exe"}))
	require.NoError(t, ensureClientStopped(context.Background(), nil))
}

// TestRun fetches into a real directory, then resolves and verifies it.
func TestRun(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t,
		hostFile{path: "bin64/exefile.exe", content: "exe"},
		hostFile{path: "resfileindex.txt", content: "res,index"},
	)

	root := t.TempDir()
	target := filepath.Join(root, "tq")
	cache := filepath.Join(root, "cache")

	require.NoError(t, os.MkdirAll(cache, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cache, "resfileindex.txt"), []byte("res,index"), 0o600))

	opts := &Options{
		Server:      "tq",
		TargetDir:   target,
		CacheDir:    cache,
		BinariesURL: h.server.URL,
		LogLevel:    "warn",
		SkipGuard:   true,
	}
	ctx := context.Background()

	require.NoError(t, Run(ctx, opts))
	require.Equal(t, 1, h.fileHits())

	data, err := os.ReadFile(filepath.Join(target, "bin64", "exefile.exe"))
	require.NoError(t, err)
	require.Equal(t, "exe", string(data))

	data, err = os.ReadFile(filepath.Join(target, "resfileindex.txt"))
	require.NoError(t, err)
	require.Equal(t, "res,index", string(data))

	build, err := CurrentBuild(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, testBuild, build)

	report, err := VerifyTree(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 2, report.Skipped())

	require.NoError(t, os.WriteFile(filepath.Join(target, "bin64", "exefile.exe"), []byte("patched"), 0o600))

	report, err = VerifyTree(ctx, opts)
	require.ErrorIs(t, err, errStaleFiles)
	require.Equal(t, 1, report.Stale())

	// Rerunning repairs the modified file only.
	require.NoError(t, Run(ctx, opts))
	require.Equal(t, 2, h.fileHits())

	_, err = VerifyTree(ctx, opts)
	require.NoError(t, err)
}

// TestRun_Integrity leaves no file behind when the host serves corrupt data.
func TestRun_Integrity(t *testing.T) {
	t.Parallel()

	h := newFakeHost(t, hostFile{path: "a.txt", content: "A"})
	h.set(func(h *fakeHost) { h.bodies["/a.txt.v1"] = "tampered" })

	target := t.TempDir()

	err := Run(context.Background(), &Options{
		TargetDir:   target,
		BinariesURL: h.server.URL,
		LogLevel:    "error",
		SkipGuard:   true,
	})
	require.Error(t, err)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	require.Equal(t, "a.txt", abort.Path)

	_, err = os.Stat(filepath.Join(target, "a.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eve-utils/eveclient-downloader/internal/config"
	"github.com/eve-utils/eveclient-downloader/internal/domain/server"
	"github.com/eve-utils/eveclient-downloader/internal/logger"
	"github.com/eve-utils/eveclient-downloader/internal/repository/files"
	"github.com/eve-utils/eveclient-downloader/internal/service/common"
)

var (
	// errClientRunning is returned when a guarded process is running during a fetch.
	errClientRunning = errors.New("the game client is running")
	// errStaleFiles is returned by VerifyTree when at least one file is out of date.
	errStaleFiles = errors.New("files are out of date")
)

// Options are inputs accepted by the downloader entry points.
// Non-empty fields override the configuration file.
type Options struct {
	// ConfigPath is the optional path to a settings YAML file.
	ConfigPath string
	// Server is the environment name or code.
	Server string
	// TargetDir is the directory to reconcile.
	TargetDir string
	// CacheDir is an optional directory to copy verified files from.
	CacheDir string
	// BinariesURL overrides the binaries host.
	BinariesURL string
	// LogLevel overrides the configured log level.
	LogLevel string
	// SkipGuard disables the running-client check.
	SkipGuard bool
}

// Run reconciles the target directory with the current build and is the
// public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx, cfg, session, err := open(ctx, opts)
	if err != nil {
		return err
	}

	defer closeSession(ctx, session)

	if !opts.SkipGuard {
		if err = ensureClientStopped(ctx, cfg.GuardProcesses); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Fetching client",
		"server", session.Server().String(), "target_dir", cfg.TargetDir, "cache_dir", cfg.CacheDir)

	report, err := session.Fetch(ctx, cfg.TargetDir, cfg.CacheDir)
	logReport(ctx, report)

	if err != nil {
		logger.ErrorKV(ctx, "Fetch aborted", "error", err)
		return err
	}

	logger.Info(ctx, "Fetch completed")

	return nil
}

// CurrentBuild resolves the build id published for the configured server.
func CurrentBuild(ctx context.Context, opts *Options) (int, error) {
	ctx, _, session, err := open(ctx, opts)
	if err != nil {
		return 0, err
	}

	defer closeSession(ctx, session)

	return session.Build(ctx)
}

// VerifyTree checks the target directory against the current build without changing it.
// It fails with a summary error when any file is missing or different.
func VerifyTree(ctx context.Context, opts *Options) (*Report, error) {
	ctx, cfg, session, err := open(ctx, opts)
	if err != nil {
		return nil, err
	}

	defer closeSession(ctx, session)

	report, err := session.Verify(ctx, cfg.TargetDir)
	if err != nil {
		return report, err
	}

	if stale := report.Stale(); stale > 0 {
		return report, fmt.Errorf("%d of %d: %w", stale, len(report.Outcomes), errStaleFiles)
	}

	logger.InfoKV(ctx, "All files are up to date", "files", len(report.Outcomes))

	return report, nil
}

// open loads settings, scopes the logger to this run and builds a session.
func open(ctx context.Context, opts *Options) (context.Context, *config.Config, *Session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return ctx, nil, nil, err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	ctx = logger.ToContext(ctx, logger.FromContext(ctx).WithOptions(logger.WithLevel(level)))
	ctx = logger.WithName(ctx, "eve-downloader")
	ctx = logger.WithKV(ctx, "session_id", uuid.NewString())

	srv, err := server.Parse(cfg.Server)
	if err != nil {
		return ctx, nil, nil, err
	}

	client := common.NewClient(
		common.WithCallTimeout(cfg.Timeout),
		common.WithUserAgent(cfg.UserAgent),
		common.WithRateLimit(cfg.RateLimit),
	)

	session, err := NewSession(srv,
		WithBinariesURL(cfg.BinariesURL),
		WithTransport(client),
		WithStore(files.NewDiskStore()),
	)
	if err != nil {
		_ = client.Close()
		return ctx, nil, nil, err
	}

	return ctx, cfg, session, nil
}

// loadConfig reads the settings file when one is given, then applies overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg := config.Default()

	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}

		cfg = loaded
	}

	overrides := []struct {
		value  string
		target *string
	}{
		{opts.Server, &cfg.Server},
		{opts.TargetDir, &cfg.TargetDir},
		{opts.CacheDir, &cfg.CacheDir},
		{opts.BinariesURL, &cfg.BinariesURL},
		{opts.LogLevel, &cfg.LogLevel},
	}

	for _, o := range overrides {
		if v := strings.TrimSpace(o.value); v != "" {
			*o.target = v
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ensureClientStopped refuses to touch the installation while the game client runs.
func ensureClientStopped(ctx context.Context, names []string) error {
	running, err := common.RunningProcesses(names)
	if err != nil {
		logger.WarnKV(ctx, "Could not check for a running client", "error", err)
		return nil
	}

	if len(running) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(running, ", "), errClientRunning)
	}

	return nil
}

func closeSession(ctx context.Context, session *Session) {
	if err := session.Close(); err != nil {
		logger.WarnKV(ctx, "Closing session failed", "error", err)
	}
}

func logReport(ctx context.Context, report *Report) {
	if report == nil {
		return
	}

	logger.InfoKV(ctx, "Reconciliation summary",
		"processed", len(report.Outcomes),
		"skipped", report.Skipped(),
		"cached", report.Cached(),
		"downloaded", report.Downloaded())
}

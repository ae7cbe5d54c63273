package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eve-utils/eveclient-downloader/internal/domain/server"
	"github.com/eve-utils/eveclient-downloader/internal/logger"
	"github.com/eve-utils/eveclient-downloader/internal/version"
)

// Config holds the settings of a download run.
type Config struct {
	// Server is the environment name or code (tranquility, TQ, sisi, ...).
	Server string `yaml:"server"`
	// TargetDir is the directory reconciled against the manifest.
	TargetDir string `yaml:"target_dir"`
	// CacheDir is an optional directory holding files of another installation.
	CacheDir string `yaml:"cache_dir,omitempty"`
	// BinariesURL is the host serving build info, manifests and files.
	BinariesURL string `yaml:"binaries_url"`
	// UserAgent identifies the tool on every request.
	UserAgent string `yaml:"user_agent"`
	// Timeout bounds a single HTTP request, body included.
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit caps download speed in bytes per second; zero disables the cap.
	RateLimit int `yaml:"rate_limit,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// GuardProcesses are executable names that must not be running during a fetch.
	GuardProcesses []string `yaml:"guard_processes"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "eve-downloader.yaml"

	// DefaultBinariesURL is the public host of EVE Online client binaries.
	DefaultBinariesURL = "https://binaries.eveonline.com"

	// DefaultTargetDir is used when no target directory is configured.
	DefaultTargetDir = "eve-client"

	// DefaultTimeout bounds one request. Client files reach hundreds of megabytes.
	DefaultTimeout = 30 * time.Minute

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// defaultLogLevel is used when log_level is empty.
	defaultLogLevel = "info"

	// clientExecutable is the game client process name.
	clientExecutable = "exefile.exe"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNegativeRateLimit is returned for rate_limit below zero.
	errNegativeRateLimit = errors.New("rate limit must not be negative")
	// errUnknownLogLevel is returned when log_level cannot be parsed.
	errUnknownLogLevel = errors.New("unknown log level")
	// errBadBinariesURL is returned when binaries_url is not an absolute http(s) URL.
	errBadBinariesURL = errors.New("binaries url must be an absolute http or https url")
)

// Default returns settings for Tranquility with every default applied.
func Default() *Config {
	return &Config{
		Server:         server.Tranquility.String(),
		TargetDir:      DefaultTargetDir,
		BinariesURL:    DefaultBinariesURL,
		UserAgent:      version.UserAgent(),
		Timeout:        DefaultTimeout,
		LogLevel:       defaultLogLevel,
		GuardProcesses: []string{clientExecutable},
	}
}

// Load reads configuration from path and validates it.
// Fields missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks cfg and fills empty optional fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Server == "" {
		cfg.Server = server.Tranquility.String()
	}

	if _, err := server.Parse(cfg.Server); err != nil {
		return fmt.Errorf("invalid server: %w", err)
	}

	if cfg.TargetDir == "" {
		cfg.TargetDir = DefaultTargetDir
	}

	if cfg.BinariesURL == "" {
		cfg.BinariesURL = DefaultBinariesURL
	}

	parsed, err := url.ParseRequestURI(cfg.BinariesURL)
	if err != nil {
		return fmt.Errorf("invalid binaries url: %w", err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%s: %w", cfg.BinariesURL, errBadBinariesURL)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.RateLimit < 0 {
		return errNegativeRateLimit
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errUnknownLogLevel)
	}

	return nil
}

package downloader

import (
	"context"
	"errors"
	"fmt"

	"github.com/eve-utils/eveclient-downloader/internal/config"
	"github.com/eve-utils/eveclient-downloader/internal/domain/manifest"
	"github.com/eve-utils/eveclient-downloader/internal/domain/server"
	"github.com/eve-utils/eveclient-downloader/internal/logger"
	"github.com/eve-utils/eveclient-downloader/internal/repository/files"
	"github.com/eve-utils/eveclient-downloader/internal/service/common"
)

// errInvalidServer is returned by NewSession for values outside the enumeration.
var errInvalidServer = errors.New("invalid server")

// Transport is a Getter whose resources are released by Close.
type Transport interface {
	Getter
	Close() error
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithBinariesURL points the session at another binaries host.
func WithBinariesURL(binariesURL string) SessionOption {
	return func(s *Session) {
		if binariesURL != "" {
			s.endpoints = NewEndpoints(binariesURL)
		}
	}
}

// WithTransport replaces the default HTTP client. The session closes it.
func WithTransport(transport Transport) SessionOption {
	return func(s *Session) {
		if transport != nil {
			s.transport = transport
		}
	}
}

// WithStore replaces the default host filesystem store.
func WithStore(store *files.Store) SessionOption {
	return func(s *Session) {
		if store != nil {
			s.store = store
		}
	}
}

// Session downloads builds of one server.
// The build id and the manifest are resolved on first use and kept for the
// lifetime of the session; start a new session to observe a newer build.
type Session struct {
	// server is fixed at construction.
	server server.Server
	// endpoints builds the binaries host URLs.
	endpoints Endpoints
	// transport is owned by the session and released by Close.
	transport Transport
	// store is where reconciliation reads and writes.
	store *files.Store

	build    memo[int]
	manifest memo[manifest.Manifest]
}

// NewSession prepares a session for srv. Nothing is fetched until first use.
func NewSession(srv server.Server, opts ...SessionOption) (*Session, error) {
	if !srv.Valid() {
		return nil, fmt.Errorf("%s: %w", srv, errInvalidServer)
	}

	s := &Session{
		server:    srv,
		endpoints: NewEndpoints(config.DefaultBinariesURL),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.transport == nil {
		s.transport = common.NewClient()
	}

	if s.store == nil {
		s.store = files.NewDiskStore()
	}

	return s, nil
}

// Server returns the environment this session downloads from.
func (s *Session) Server() server.Server {
	return s.server
}

// Build returns the current build id of the server, fetching it on first call.
func (s *Session) Build(ctx context.Context) (int, error) {
	return s.build.get(func() (int, error) {
		url := s.endpoints.BuildInfoURL(s.server)

		logger.DebugKV(ctx, "Resolving build", "url", url)

		build, err := ResolveBuild(ctx, s.transport, url)
		if err != nil {
			return 0, err
		}

		logger.InfoKV(ctx, "Resolved build", "server", s.server.String(), "build", build)

		return build, nil
	})
}

// Manifest returns the binary index of the current build, fetching it on first call.
func (s *Session) Manifest(ctx context.Context) (manifest.Manifest, error) {
	return s.manifest.get(func() (manifest.Manifest, error) {
		build, err := s.Build(ctx)
		if err != nil {
			return nil, err
		}

		url := s.endpoints.ManifestURL(build)

		body, err := s.transport.Get(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch manifest: %w", err)
		}

		entries, err := manifest.Parse(string(body), s.endpoints.FilesURL())
		if err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", url, err)
		}

		logger.InfoKV(ctx, "Loaded manifest", "build", build, "entries", len(entries))

		return entries, nil
	})
}

// Fetch reconciles targetDir with the current build. cacheDir may be empty.
func (s *Session) Fetch(ctx context.Context, targetDir, cacheDir string) (*Report, error) {
	entries, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	return NewReconciler(s.store, s.transport).Reconcile(ctx, targetDir, cacheDir, entries)
}

// Verify reports which files of targetDir differ from the current build.
func (s *Session) Verify(ctx context.Context, targetDir string) (*Report, error) {
	entries, err := s.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	return NewReconciler(s.store, s.transport).Verify(ctx, targetDir, entries)
}

// Close releases the transport.
func (s *Session) Close() error {
	if s == nil || s.transport == nil {
		return nil
	}

	return s.transport.Close()
}

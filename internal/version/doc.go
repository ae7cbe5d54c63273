// Package version exposes build metadata for eve-downloader.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
package version

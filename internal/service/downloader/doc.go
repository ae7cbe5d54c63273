// Package downloader brings a local directory in line with the current
// published build of an EVE Online server.
//
// A Session resolves the build id once, downloads and parses the build's
// manifest once, and hands it to the Reconciler. The Reconciler walks the
// manifest in order and, per entry, skips a verified local file, copies a
// verified file from the cache directory, or downloads and verifies the file
// before committing it. The first failure aborts the walk; files committed
// before it stay on disk, so running again resumes where it stopped.
package downloader

// Package manifest models the per-build binary index published by the
// binaries host and parses its CRLF-delimited text form.
//
// Each line reads `<path>,<url-suffix>,<hexhash>`. Paths are normalized to
// local host paths and rejected when they would leave the target directory.
package manifest

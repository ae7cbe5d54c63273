// Package files implements the filesystem side of reconciliation.
//
// Store wraps an afero.Fs. On the host filesystem commits go through go-update,
// which writes a sibling file, re-checks the digest and swaps it into place, so a
// crash never leaves a half-written file under the final name. Other
// filesystems (tests) get a plain verified write.
package files

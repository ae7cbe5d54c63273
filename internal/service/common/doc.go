// Package common holds helpers shared by several services.
//
// It provides the HTTP client used against the binaries host (identifying
// header, redirects, timeouts, optional bandwidth cap) and a process guard that
// detects running executables by name.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

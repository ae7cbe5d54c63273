// Package server enumerates the EVE Online deployment environments
// (Tranquility, Singularity, ...) and their short codes used by the
// binaries host.
package server

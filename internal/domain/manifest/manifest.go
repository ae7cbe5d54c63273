package manifest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	lineSeparator  = "\r\n"
	fieldSeparator = ","
	fieldCount     = 3
	appPrefix      = "app:"
)

var (
	// ErrMalformedEntry is returned when a manifest line is not made of exactly three fields.
	ErrMalformedEntry = errors.New("malformed manifest entry")
	// ErrUnsafePath is returned when an entry path is empty, absolute or climbs above the root.
	ErrUnsafePath = errors.New("path escapes target directory")
)

// Entry is one file of a build.
type Entry struct {
	// Path is relative to the target directory and uses the host separator.
	Path string
	// URL is where the file bytes are downloaded from.
	URL string
	// Hash is the expected MD5 hex digest, stored as published.
	Hash string
}

// Manifest lists the entries of a build in publication order.
// Duplicate paths are kept; the last one processed wins on disk.
type Manifest []Entry

// Paths returns the entry paths in manifest order.
func (m Manifest) Paths() []string {
	paths := make([]string, len(m))
	for i, e := range m {
		paths[i] = e.Path
	}

	return paths
}

// Parse turns the raw index text into a Manifest.
// baseURL is prefixed to every url-suffix field. Any malformed line fails the whole parse.
func Parse(raw, baseURL string) (Manifest, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	lines := strings.Split(raw, lineSeparator)
	entries := make(Manifest, 0, len(lines))

	for i, line := range lines {
		if line == "" {
			continue
		}

		entry, err := parseLine(line, baseURL)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func parseLine(line, baseURL string) (Entry, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != fieldCount {
		return Entry{}, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedEntry, fieldCount, len(fields))
	}

	path := NormalizePath(fields[0])
	if !filepath.IsLocal(path) {
		return Entry{}, fmt.Errorf("%w: %q: %w", ErrMalformedEntry, fields[0], ErrUnsafePath)
	}

	return Entry{
		Path: path,
		URL:  baseURL + fields[1],
		Hash: fields[2],
	}, nil
}

// NormalizePath strips a leading "app:" and one leading "/" from a published
// path and converts it to the host separator.
func NormalizePath(published string) string {
	path := strings.TrimPrefix(published, appPrefix)
	path = strings.TrimPrefix(path, "/")

	return filepath.FromSlash(path)
}

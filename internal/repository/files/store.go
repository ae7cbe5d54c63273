package files

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/spf13/afero"

	"github.com/eve-utils/eveclient-downloader/internal/checksum"
)

const (
	// DefaultFileMode is applied to committed files.
	DefaultFileMode os.FileMode = 0o644
	// DefaultDirMode is applied to created directories.
	DefaultDirMode os.FileMode = 0o755
)

// errDigestMismatch is returned by a non-atomic commit whose bytes do not match the digest.
var errDigestMismatch = errors.New("committed bytes do not match digest")

// Store performs the filesystem operations reconciliation needs.
type Store struct {
	// fs is where every read and write happens.
	fs afero.Fs
	// atomic selects go-update commits; only valid for the host filesystem.
	atomic bool
	// mu serialises commits, go-update uses fixed sibling names per target.
	mu sync.Mutex
}

// NewDiskStore returns a Store on the host filesystem with atomic commits.
func NewDiskStore() *Store {
	return &Store{
		fs:     afero.NewOsFs(),
		atomic: true,
	}
}

// NewStore returns a Store on fs with plain verified writes.
func NewStore(fs afero.Fs) *Store {
	return &Store{
		fs: fs,
	}
}

// Fs exposes the underlying filesystem for read-only helpers such as hashing.
//
//nolint:ireturn // Callers need the afero interface.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// EnsureDir creates dir and its parents when missing.
func (s *Store) EnsureDir(dir string) error {
	if err := s.fs.MkdirAll(filepath.Clean(dir), DefaultDirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	return nil
}

// Commit writes data to path, overwriting any previous content.
// When digest is non-nil the bytes are checked against it before path changes.
func (s *Store) Commit(path string, data io.Reader, digest []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path = filepath.Clean(path)

	if s.atomic {
		return s.applyUpdate(path, data, digest)
	}

	return s.write(path, data, digest)
}

// Copy commits the content of src to dst.
func (s *Store) Copy(src, dst string, digest []byte) error {
	source, err := s.fs.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}

	defer func() {
		_ = source.Close()
	}()

	return s.Commit(dst, source, digest)
}

// applyUpdate swaps path for data through go-update.
// go-update renames the current target aside, so an empty placeholder is
// created first for new files.
func (s *Store) applyUpdate(path string, data io.Reader, digest []byte) error {
	created := false

	if _, err := s.fs.Stat(path); errors.Is(err, os.ErrNotExist) {
		placeholder, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("close %s: %w", path, err)
		}

		created = true
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: DefaultFileMode,
		Checksum:   digest,
		Hash:       checksum.Hash,
	}

	if err := goupdate.Apply(data, options); err != nil {
		if created {
			_ = s.fs.Remove(path)
		}

		return fmt.Errorf("apply %s: %w", path, err)
	}

	return nil
}

func (s *Store) write(path string, data io.Reader, digest []byte) error {
	contents, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("read content for %s: %w", path, err)
	}

	if digest != nil {
		if actual := checksum.Sum(contents); actual != hex.EncodeToString(digest) {
			return fmt.Errorf("%s: %w", path, errDigestMismatch)
		}
	}

	if err = afero.WriteFile(s.fs, path, contents, DefaultFileMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

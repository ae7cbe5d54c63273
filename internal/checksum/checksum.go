package checksum

import (
	"crypto"
	"crypto/md5" //nolint:gosec // The binaries host publishes MD5 digests.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
)

// Hash is the digest algorithm of manifest entries, in the crypto.Hash form
// expected by the update committer.
const Hash crypto.Hash = crypto.MD5

// ErrMismatch is matched by every *MismatchError.
var ErrMismatch = errors.New("checksum mismatch")

// MismatchError reports bytes whose digest differs from the manifest.
type MismatchError struct {
	// Path is the manifest path of the offending entry.
	Path string
	// Expected is the digest published in the manifest.
	Expected string
	// Actual is the digest of the received bytes.
	Actual string
}

// Error implements error.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum error: %s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrMismatch) hold.
func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// Sum returns the lowercase hex digest of data.
func Sum(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // See package doc.

	return hex.EncodeToString(sum[:])
}

// SumReader streams r through the hasher and returns the lowercase hex digest.
func SumReader(r io.Reader) (string, error) {
	hasher := md5.New() //nolint:gosec // See package doc.
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Equal compares two hex digests ignoring case.
func Equal(expected, actual string) bool {
	return strings.EqualFold(strings.TrimSpace(expected), actual)
}

// Decode converts a hex digest into raw bytes.
func Decode(digest string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(digest))
	if err != nil {
		return nil, fmt.Errorf("decode digest %q: %w", digest, err)
	}

	return raw, nil
}

// Verifier checks files on a filesystem against expected digests.
type Verifier struct {
	fs afero.Fs
}

// NewVerifier returns a Verifier reading from fs.
func NewVerifier(fs afero.Fs) *Verifier {
	return &Verifier{fs: fs}
}

// VerifyFile reports whether the file at path exists and hashes to expected.
// A missing file, or a directory in its place, is reported as false without error.
func (v *Verifier) VerifyFile(path, expected string) (bool, error) {
	info, err := v.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if info.IsDir() {
		return false, nil
	}

	file, err := v.fs.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	actual, err := SumReader(file)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	return Equal(expected, actual), nil
}

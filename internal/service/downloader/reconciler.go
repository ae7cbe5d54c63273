package downloader

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/eve-utils/eveclient-downloader/internal/checksum"
	"github.com/eve-utils/eveclient-downloader/internal/domain/manifest"
	"github.com/eve-utils/eveclient-downloader/internal/logger"
	"github.com/eve-utils/eveclient-downloader/internal/repository/files"
)

// Action is what reconciliation did, or would do, for one entry.
type Action string

// Reconciliation actions.
const (
	// ActionSkipped means the local file already matched.
	ActionSkipped Action = "skipped"
	// ActionCached means the file was copied from the cache directory.
	ActionCached Action = "cached"
	// ActionDownloaded means the file was downloaded and verified.
	ActionDownloaded Action = "downloaded"
	// ActionStale means a dry run found the local file missing or different.
	ActionStale Action = "stale"
)

// Outcome records the action taken for one manifest entry.
type Outcome struct {
	// Index is the position of the entry in the manifest.
	Index int
	// Path is the entry path relative to the target directory.
	Path string
	// Action is what happened to the entry.
	Action Action
}

// Report lists the outcomes of the entries processed so far, in manifest order.
type Report struct {
	Outcomes []Outcome
}

// Count returns how many entries ended with action.
func (r *Report) Count(action Action) int {
	if r == nil {
		return 0
	}

	count := 0

	for _, outcome := range r.Outcomes {
		if outcome.Action == action {
			count++
		}
	}

	return count
}

// Skipped returns the number of entries that already matched locally.
func (r *Report) Skipped() int { return r.Count(ActionSkipped) }

// Cached returns the number of entries copied from the cache directory.
func (r *Report) Cached() int { return r.Count(ActionCached) }

// Downloaded returns the number of entries fetched from the network.
func (r *Report) Downloaded() int { return r.Count(ActionDownloaded) }

// Stale returns the number of entries a dry run found out of date.
func (r *Report) Stale() int { return r.Count(ActionStale) }

func (r *Report) add(index int, path string, action Action) {
	r.Outcomes = append(r.Outcomes, Outcome{Index: index, Path: path, Action: action})
}

// AbortError reports the entry at which reconciliation stopped.
// Entries before Index were processed; entries from Index on were not.
type AbortError struct {
	// Index is the manifest position of the failing entry.
	Index int
	// Path is the manifest path of the failing entry.
	Path string
	// Err is the cause, a *checksum.MismatchError for corrupt downloads.
	Err error
}

// Error implements error.
func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted at entry %d (%s): %v", e.Index, e.Path, e.Err)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AbortError) Unwrap() error {
	return e.Err
}

// Reconciler applies a manifest to a directory tree.
type Reconciler struct {
	store    *files.Store
	verifier *checksum.Verifier
	getter   Getter
}

// NewReconciler returns a Reconciler writing through store and downloading with getter.
func NewReconciler(store *files.Store, getter Getter) *Reconciler {
	return &Reconciler{
		store:    store,
		verifier: checksum.NewVerifier(store.Fs()),
		getter:   getter,
	}
}

// Reconcile processes m sequentially against targetDir, using cacheDir when
// it is not empty. It stops at the first failing entry and returns the partial
// report together with an *AbortError.
func (r *Reconciler) Reconcile(ctx context.Context, targetDir, cacheDir string, m manifest.Manifest) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, 0, len(m))}

	for i, entry := range m {
		if err := ctx.Err(); err != nil {
			return report, &AbortError{Index: i, Path: entry.Path, Err: err}
		}

		action, err := r.reconcileEntry(ctx, targetDir, cacheDir, entry)
		if err != nil {
			return report, &AbortError{Index: i, Path: entry.Path, Err: err}
		}

		report.add(i, entry.Path, action)
	}

	return report, nil
}

// Verify checks targetDir against m without writing or downloading anything.
func (r *Reconciler) Verify(ctx context.Context, targetDir string, m manifest.Manifest) (*Report, error) {
	report := &Report{Outcomes: make([]Outcome, 0, len(m))}

	for i, entry := range m {
		if err := ctx.Err(); err != nil {
			return report, &AbortError{Index: i, Path: entry.Path, Err: err}
		}

		ok, err := r.verifier.VerifyFile(filepath.Join(targetDir, entry.Path), entry.Hash)
		if err != nil {
			return report, &AbortError{Index: i, Path: entry.Path, Err: err}
		}

		action := ActionSkipped
		if !ok {
			action = ActionStale

			logger.InfoKV(ctx, "Out of date", "path", entry.Path)
		}

		report.add(i, entry.Path, action)
	}

	return report, nil
}

func (r *Reconciler) reconcileEntry(
	ctx context.Context,
	targetDir, cacheDir string,
	entry manifest.Entry,
) (Action, error) {
	localPath := filepath.Join(targetDir, entry.Path)

	ok, err := r.verifier.VerifyFile(localPath, entry.Hash)
	if err != nil {
		return "", err
	}

	if ok {
		logger.InfoKV(ctx, "Already downloaded", "path", entry.Path)
		return ActionSkipped, nil
	}

	if err = r.store.EnsureDir(filepath.Dir(localPath)); err != nil {
		return "", err
	}

	if cacheDir != "" {
		cachedPath := filepath.Join(cacheDir, entry.Path)

		ok, err = r.verifier.VerifyFile(cachedPath, entry.Hash)
		if err != nil {
			return "", err
		}

		if ok {
			logger.InfoKV(ctx, "Copying from cache", "path", entry.Path)

			digest, err := checksum.Decode(entry.Hash)
			if err != nil {
				return "", err
			}

			if err = r.store.Copy(cachedPath, localPath, digest); err != nil {
				return "", err
			}

			return ActionCached, nil
		}
	}

	logger.InfoKV(ctx, "Downloading", "path", entry.Path)

	data, err := r.getter.Get(ctx, entry.URL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", entry.Path, err)
	}

	if actual := checksum.Sum(data); !checksum.Equal(entry.Hash, actual) {
		return "", &checksum.MismatchError{Path: entry.Path, Expected: entry.Hash, Actual: actual}
	}

	digest, err := checksum.Decode(entry.Hash)
	if err != nil {
		return "", err
	}

	if err = r.store.Commit(localPath, bytes.NewReader(data), digest); err != nil {
		return "", err
	}

	logger.DebugKV(ctx, "Downloaded", "path", entry.Path, "bytes", len(data))

	return ActionDownloaded, nil
}

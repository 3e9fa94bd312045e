// Package trash provides safe removal with rename-to-trash fallback and
// reclamation of quarantined files.
//
// Files held open by another process cannot always be deleted in place,
// most notably on Windows. RemoveOrRename falls back to renaming such
// files to a name carrying the .mamba_trash extension and records them in
// <prefix>/conda-meta/mamba_trash.txt. Clean walks that index, or in deep
// mode the whole prefix, and deletes whatever has become deletable since.
// Janitor keeps a prefix clean by watching for new trash as it appears.
package trash

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pbrit/mamba/internal/errors"
	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/logging"
)

// TrashExt is the extension carried by quarantined files.
const TrashExt = ".mamba_trash"

const (
	// maxTrashCandidates bounds quarantine-name disambiguation for one path.
	maxTrashCandidates = 100
	// maxRenameRetries bounds rename attempts before giving up on a path.
	maxRenameRetries = 3
	// defaultRetryUnit scales the linear backoff between rename attempts.
	defaultRetryUnit = 2 * time.Second
)

// trashMu serializes quarantine renames and index appends. Concurrent
// goroutines disambiguating trash names must not race between the
// existence probe and the rename.
var trashMu sync.Mutex

// Remover deletes paths from disk, quarantining to trash whatever cannot
// be deleted outright.
//
// A Remover is bound to the prefix whose trash index records its
// quarantined files. It is safe for concurrent use.
type Remover struct {
	prefix string
	log    *logging.Logger

	// Swapped in tests to force the quarantine and retry paths.
	removeAll func(path string) error
	rename    func(oldpath, newpath string) error
	retryUnit time.Duration
}

// NewRemover returns a Remover recording quarantined files under
// prefix/conda-meta. A nil log discards diagnostics.
func NewRemover(prefix string, log *logging.Logger) *Remover {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Remover{
		prefix:    prefix,
		log:       log.WithComponent("trash").WithPrefix(prefix),
		removeAll: os.RemoveAll,
		rename:    os.Rename,
		retryUnit: defaultRetryUnit,
	}
}

// RemoveOrRename deletes path from disk. When deletion fails, typically
// because another process still holds the file open, the path is renamed
// to a quarantine name carrying the .mamba_trash extension and recorded
// in the prefix trash index for a later Clean.
//
// It returns 1 when the path was removed or quarantined, 0 when it did
// not exist. Rename attempts back off linearly and honor ctx; exhausting
// them yields an error matching ErrRemovalRetryExhausted.
func (r *Remover) RemoveOrRename(ctx context.Context, path string) (int, error) {
	if !fsutil.Lexists(path) {
		return 0, nil
	}

	err := r.removeAll(path)
	if err == nil {
		return 1, nil
	}

	trashMu.Lock()
	defer trashMu.Unlock()

	counter := 0
	for {
		r.log.Info("caught a filesystem error (file in use?)", "path", path, "error", err.Error())

		dest, derr := r.trashCandidate(path)
		if derr != nil {
			return 0, derr
		}

		rerr := r.rename(path, dest)
		if rerr == nil {
			if ierr := appendIndex(r.prefix, dest); ierr != nil {
				r.log.Warn("failed to record trash file in index", "path", dest, "error", ierr.Error())
			}
			r.log.Debug("quarantined to trash", "path", path, "trash", dest)
			return 1, nil
		}
		err = rerr

		counter++
		sleepFor := time.Duration(counter) * r.retryUnit
		r.log.Error("trying to remove (file in use?)", "path", path, "error", err.Error(), "sleep", sleepFor.String())
		if counter > maxRenameRetries {
			cause := errors.Join(errors.ErrRemovalRetryExhausted, err)
			return 0, errors.NewTrashError("could not delete file", cause).
				WithPath(path).
				WithPrefix(r.prefix).
				WithAttempts(counter)
		}
		if serr := sleepCtx(ctx, sleepFor); serr != nil {
			return 0, errors.NewTrashError("removal interrupted", serr).
				WithPath(path).
				WithPrefix(r.prefix)
		}
	}
}

// trashCandidate returns the first unused quarantine name for path:
// path.mamba_trash, then path0.mamba_trash and so on.
func (r *Remover) trashCandidate(path string) (string, error) {
	dest := path + TrashExt
	for n := 0; fsutil.Lexists(dest); n++ {
		if n >= maxTrashCandidates {
			return "", errors.NewTrashError("too many existing trash files. Please force clean", errors.ErrTooManyTrashCollisions).
				WithPath(path).
				WithPrefix(r.prefix)
		}
		dest = path + strconv.Itoa(n) + TrashExt
	}
	return dest, nil
}

// sleepCtx pauses for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pbrit/mamba/internal/errors"
	"github.com/pbrit/mamba/internal/fsutil"
	"github.com/pbrit/mamba/internal/logging"
)

// owner holds the OS-level lock on one marker file. At most one owner
// exists per target in this process; the registry shares it between
// handles and tears it down on the last release.
type owner struct {
	target     string // absolute path of the locked file or directory
	marker     string // marker file carrying the byte lock
	file       *os.File
	fd         int
	preExisted bool // marker was on disk before we opened it
	locker     markerLocker
	log        *logging.Logger
}

// markerFor derives the marker protecting target: directories carry the
// marker inside themselves, files get a sibling.
func markerFor(target string, isDir bool) string {
	if isDir {
		return filepath.Join(target, filepath.Base(target)+".lock")
	}
	return target + ".lock"
}

// newOwner verifies the target, opens its marker and runs the acquisition
// sequence. On failure nothing is left behind: the descriptor is closed
// and a marker we created is removed.
func newOwner(ctx context.Context, target string, timeout time.Duration, log *logging.Logger) (*owner, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, errors.NewLockError("could not lock non-existing path", errors.ErrLockTargetMissing).
			WithTarget(target)
	}

	if info.IsDir() {
		log.Debug("locking directory", "path", target)
	} else {
		log.Debug("locking file", "path", target)
	}

	marker := markerFor(target, info.IsDir())
	preExisted := fsutil.Lexists(marker)

	f, err := os.OpenFile(marker, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, errors.NewLockError("could not open lockfile", err).
			WithTarget(target).WithMarker(marker)
	}

	o := &owner{
		target:     target,
		marker:     marker,
		file:       f,
		fd:         int(f.Fd()),
		preExisted: preExisted,
		locker:     newLocker(),
		log:        log,
	}

	if err := o.lock(ctx, timeout); err != nil {
		o.release()
		return nil, err
	}

	log.Debug("lockfile acquired", "path", target, "marker", marker)
	return o, nil
}

// lock runs the acquisition sequence: one non-blocking attempt, then a
// cancellable poll until the timeout elapses. A zero timeout polls until
// ctx is done.
func (o *owner) lock(ctx context.Context, timeout time.Duration) error {
	locked, holder, err := o.locker.TryLock(o.file)
	if err != nil {
		return errors.NewLockError("could not lock file", err).
			WithTarget(o.target).WithMarker(o.marker)
	}
	if locked {
		return nil
	}

	attrs := []any{"path", o.target, "timeout", timeout}
	if holder > 0 {
		attrs = append(attrs, "pid", holder)
	}
	o.log.Warn("waiting for other mamba process to finish", attrs...)

	locked, err = waitLock(ctx, timeout, func() (bool, error) {
		ok, _, terr := o.locker.TryLock(o.file)
		return ok, terr
	})
	if locked {
		return nil
	}

	cause := error(errors.ErrLockAcquisitionFailed)
	if err != nil {
		cause = errors.Join(errors.ErrLockAcquisitionFailed, err)
	}
	return errors.NewLockError(
		"lockfile can't be set. This could be fixed by changing the locks' timeout or cleaning your environment from previous runs",
		cause,
	).WithTarget(o.target).WithMarker(o.marker).WithTimeout(timeout)
}

// release unwinds the lock: byte unlock, descriptor close, marker removal
// when we created it. Failures are logged and never mask the operation
// that triggered the unwind.
func (o *owner) release() {
	if err := o.locker.Unlock(o.file); err != nil {
		o.log.Warn("failed to unlock lockfile byte", "marker", o.marker, "error", err)
	}
	if err := o.file.Close(); err != nil {
		o.log.Warn("failed to close lockfile descriptor", "marker", o.marker, "error", err)
	}
	o.removeMarkerIfOwned()
	o.log.Debug("lockfile released", "path", o.target, "marker", o.marker)
}

// removeMarkerIfOwned deletes the marker only when this process created it.
// A marker that predates us may be under another process's descriptor, and
// deleting it would detach their lock from the path.
func (o *owner) removeMarkerIfOwned() {
	if o.preExisted {
		return
	}
	if err := os.Remove(o.marker); err != nil && !os.IsNotExist(err) {
		o.log.Error("removing lockfile failed, you may need to remove it manually",
			"marker", o.marker, "error", err)
	}
}

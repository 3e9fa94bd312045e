package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pbrit/mamba/internal/errors"
	"github.com/pbrit/mamba/internal/logging"
)

// Process-wide locking switches, fed from configuration at startup.
var (
	settingsMu     sync.RWMutex
	enabled        = true
	defaultTimeout time.Duration
	pkgLog         = logging.NopLogger()
)

// SetEnabled turns lockfile creation on or off for the whole process.
// With locking disabled, Acquire returns no-op handles.
func SetEnabled(on bool) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	enabled = on
}

// Enabled reports whether lockfiles are in use.
func Enabled() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return enabled
}

// SetDefaultTimeout sets how long Acquire waits for contended locks.
// Zero waits indefinitely.
func SetDefaultTimeout(d time.Duration) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	defaultTimeout = d
}

// DefaultTimeout returns the process-wide acquisition timeout.
func DefaultTimeout() time.Duration {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return defaultTimeout
}

// SetLogger routes the package's diagnostics through l. A nil logger is
// ignored.
func SetLogger(l *logging.Logger) {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	if l != nil {
		pkgLog = l
	}
}

func logger() *logging.Logger {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return pkgLog
}

// LockFile is a handle on a process-wide lock. Handles for the same target
// share one OS lock; the last Close releases it.
type LockFile struct {
	path string
	o    *owner
	once sync.Once
}

// Acquire locks path with the process-wide default timeout. See
// AcquireTimeout.
func Acquire(ctx context.Context, path string) (*LockFile, error) {
	return AcquireTimeout(ctx, path, DefaultTimeout())
}

// AcquireTimeout locks path, a file or directory that must already exist,
// waiting up to timeout for other processes to release it. A zero timeout
// waits until ctx is done. If this process already holds the lock the
// returned handle shares it without touching the OS.
//
// When lockfiles are disabled by configuration the returned handle is a
// no-op: Close, Path, Marker and Fd all behave, but nothing is locked.
func AcquireTimeout(ctx context.Context, path string, timeout time.Duration) (*LockFile, error) {
	if !Enabled() {
		logger().Debug("lockfiles are disabled, skipping lock", "path", path)
		return &LockFile{path: path}, nil
	}

	o, err := locks.acquire(ctx, path, timeout, logger())
	if err != nil {
		return nil, err
	}
	return &LockFile{path: o.target, o: o}, nil
}

// Path returns the locked target. For no-op handles it returns the path
// that was requested.
func (l *LockFile) Path() string {
	return l.path
}

// Marker returns the marker file carrying the OS lock, or "" for a no-op
// handle.
func (l *LockFile) Marker() string {
	if l.o == nil {
		return ""
	}
	return l.o.marker
}

// Fd returns the descriptor of the open marker, or -1 for a no-op handle.
func (l *LockFile) Fd() int {
	if l.o == nil {
		return -1
	}
	return l.o.fd
}

// Close releases this handle. The OS lock drops when the last handle on
// the target closes. Close never fails: cleanup problems are logged, not
// returned. Safe to call multiple times and on no-op handles.
func (l *LockFile) Close() error {
	if l == nil || l.o == nil {
		return nil
	}
	l.once.Do(func() {
		locks.release(l.o.target)
	})
	return nil
}

// MarkerPath returns the marker that protects target: directories carry
// <dir>/<basename>.lock inside, files get a .lock sibling. The target must
// exist, since its kind decides the marker's location.
func MarkerPath(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", errors.NewLockError("could not resolve lock target", err).WithTarget(target)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.NewLockError("could not lock non-existing path", errors.ErrLockTargetMissing).
			WithTarget(abs)
	}
	return markerFor(abs, info.IsDir()), nil
}

// IsLocked reports whether the marker at path is locked by any process,
// this one included. The registry answers for our own locks first; on
// POSIX an external probe of a path we hold would silently drop the lock
// when its descriptor closes.
func IsLocked(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if locks.isLocked(abs) {
		return true
	}

	locked, holder, err := newLocker().LockedExternally(abs)
	if err != nil {
		logger().Debug("lock probe failed", "path", abs, "error", err)
		return false
	}
	if locked && holder > 0 {
		logger().Debug("path locked by another process", "path", abs, "pid", holder)
	}
	return locked
}

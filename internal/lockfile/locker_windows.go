//go:build windows

package lockfile

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/windows"
)

func newPlatformLocker() markerLocker {
	return overlappedLocker{}
}

// overlappedLocker locks the marker byte with LockFileEx. Unlike POSIX
// record locks, Windows byte-range locks are mandatory and per-handle, and
// they must be released with UnlockFileEx before the handle closes.
type overlappedLocker struct{}

func lockOverlapped() *windows.Overlapped {
	return &windows.Overlapped{Offset: lockOffset}
}

func (overlappedLocker) TryLock(f *os.File) (bool, int, error) {
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, lockOverlapped(),
	)
	if err == nil {
		return true, 0, nil
	}
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return false, 0, nil
	}
	return false, 0, err
}

func (overlappedLocker) Unlock(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, lockOverlapped())
}

func (overlappedLocker) LockedExternally(path string) (bool, int, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		// Another process holds the file open with exclusive sharing.
		if errors.Is(err, windows.ERROR_SHARING_VIOLATION) {
			return true, 0, nil
		}
		return false, 0, err
	}
	defer f.Close()

	// The lock is mandatory, so reading the locked byte fails while any
	// process holds it. EOF just means the marker is still zero-length.
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, lockOffset); err != nil && err != io.EOF {
		return true, 0, nil
	}
	return false, 0, nil
}

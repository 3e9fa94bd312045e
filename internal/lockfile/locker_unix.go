//go:build !windows

package lockfile

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func newPlatformLocker() markerLocker {
	return fcntlLocker{}
}

// fcntlLocker locks the marker byte with POSIX record locks. Record locks
// are per-process: acquiring a byte this process already holds succeeds,
// which is why the registry deduplicates before the locker runs.
type fcntlLocker struct{}

func lockRange() unix.Flock_t {
	return unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: unix.SEEK_SET,
		Start:  lockOffset,
		Len:    1,
	}
}

func (fcntlLocker) TryLock(f *os.File) (bool, int, error) {
	lk := lockRange()
	err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk)
	if err == nil {
		return true, 0, nil
	}
	if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EAGAIN) {
		// Contended: ask the kernel which process holds the byte.
		probe := lockRange()
		if gerr := unix.FcntlFlock(f.Fd(), unix.F_GETLK, &probe); gerr == nil && probe.Type != unix.F_UNLCK {
			return false, int(probe.Pid), nil
		}
		return false, 0, nil
	}
	return false, 0, err
}

func (fcntlLocker) Unlock(f *os.File) error {
	lk := lockRange()
	lk.Type = unix.F_UNLCK
	return unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk)
}

func (fcntlLocker) LockedExternally(path string) (bool, int, error) {
	// This open/close pair is only safe because the facade has already
	// ruled out a lock held by this process.
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer f.Close()

	lk := lockRange()
	if err := unix.FcntlFlock(f.Fd(), unix.F_GETLK, &lk); err != nil {
		return false, 0, err
	}
	if lk.Type == unix.F_UNLCK {
		return false, 0, nil
	}
	return true, int(lk.Pid), nil
}

// IsLockedFD reports whether fd is the descriptor of a marker this process
// holds locked. F_GETLK only reports other processes' locks, so the
// registry's descriptor index is the sole reliable same-process check.
func IsLockedFD(fd int) bool {
	return locks.isLockedFd(fd)
}
